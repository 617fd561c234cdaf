package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/fullstorydev/grpchan/grpchantesting"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/jhump/grpccall"
	"github.com/jhump/grpccall/internal"
)

func main() {
	serverPort := flag.Int("server-port", 26354, "the port on which the server is listening")
	producers := flag.Int("producers", 4, "the number of concurrent producer goroutines")
	writes := flag.Int("writes", 100, "the number of writes issued by each producer")
	flag.Parse()

	ctx := context.Background()
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cc, err := internal.BlockingDial(dialCtx,
		fmt.Sprintf("127.0.0.1:%d", *serverPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = cc.Close()
	}()

	client := grpchantesting.NewTestServiceClient(cc)
	callCtx, cancelCall := context.WithCancel(ctx)
	defer cancelCall()
	stream, err := client.BidiStream(callCtx)
	if err != nil {
		log.Fatal(err)
	}

	obs := &observer{done: make(chan *status.Status, 1)}
	call := grpccall.NewClientCall[*grpchantesting.Message, *grpchantesting.Message](stream, cancelCall, obs)
	log.Println("Call started.")

	if err := internal.SendWrites(ctx, call, *producers, *writes); err != nil {
		log.Fatal(err)
	}
	if err := call.CloseSend(); err != nil {
		log.Fatal(err)
	}

	st := <-obs.done
	if st.Err() != nil {
		log.Fatal(st.Err())
	}
	total := *producers * *writes
	if got := int(obs.reads.Load()); got != total {
		log.Fatalf("echoed %d of %d messages", got, total)
	}
	log.Printf("Echoed %d messages over one call.", total)

	// Success!
}

type observer struct {
	reads atomic.Int32
	done  chan *status.Status
}

func (o *observer) OnStreamStart() {}

func (o *observer) OnStreamRead(*grpchantesting.Message) {
	o.reads.Add(1)
}

func (o *observer) OnStreamFinish(st *status.Status) {
	o.done <- st
}
