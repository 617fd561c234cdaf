package internal

import (
	"context"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

// BlockingDial dials the given address and returns the resulting gRPC
// client conn. It blocks for the client to become ready. If the given
// context finishes before the client becomes ready, it returns the most
// recent error returned by underlying network dial operations, falling
// back to the context error.
func BlockingDial(ctx context.Context, addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var mu sync.Mutex
	var lastErr error
	cc, err := grpc.NewClient(addr, append(opts,
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			conn, err := (&net.Dialer{
				// Setting a negative value here prevents the Go stdlib
				// from enabling TCP keepalives by default and from
				// overriding the OS values of the keepalive time and
				// interval; enabling SO_KEEPALIVE below then leaves the
				// OS defaults in effect.
				KeepAlive: time.Duration(-1),
				Control: func(_, _ string, c syscall.RawConn) error {
					return c.Control(func(fd uintptr) {
						_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
					})
				},
			}).DialContext(ctx, "tcp", addr)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				if !isTemporary(err) {
					cancel()
				}
			}
			return conn, err
		}))...,
	)
	if err != nil {
		return nil, err
	}
	cc.Connect()
	for {
		state := cc.GetState()
		if state == connectivity.Ready {
			return cc, nil
		}
		if !cc.WaitForStateChange(ctx, state) {
			mu.Lock()
			err := lastErr
			mu.Unlock()
			if err != nil {
				return nil, err
			}
			// Don't have a dial error? Return the context error.
			return nil, ctx.Err()
		}
	}
}

// copied from grpc-go
func isTemporary(err error) bool {
	switch err := err.(type) {
	case interface {
		Temporary() bool
	}:
		return err.Temporary()
	case interface {
		Timeout() bool
	}:
		// Timeouts may be resolved upon retry, and are thus treated as
		// temporary.
		return err.Timeout()
	}
	return true
}
