package internal

import (
	"bytes"
	"context"

	"github.com/fullstorydev/grpchan/grpchantesting"
	"golang.org/x/sync/errgroup"
)

// Writer is the write surface of a call, satisfied by
// *grpccall.ClientCall over the grpchantesting message type.
type Writer interface {
	Write(msg *grpchantesting.Message) error
}

// SendWrites issues count writes from each of producers goroutines,
// all against the same call, and returns once every write has been
// accepted. Message counts are unique across producers so a consumer
// can verify that no write was lost or duplicated.
func SendWrites(ctx context.Context, w Writer, producers, count int) error {
	grp, ctx := errgroup.WithContext(ctx)
	for i := 0; i < producers; i++ {
		i := i
		grp.Go(func() error {
			for j := 0; j < count; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				msg := &grpchantesting.Message{
					Count:   int32(i*count + j),
					Payload: bytes.Repeat([]byte{byte(i)}, 128),
				}
				if err := w.Write(msg); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return grp.Wait()
}
