package main

import (
	"flag"
	"fmt"
	"log"
	"net"

	"github.com/fullstorydev/grpchan/grpchantesting"
	"google.golang.org/grpc"
)

func main() {
	port := flag.Int("port", 26354, "the port on which this server will listen")
	flag.Parse()

	svr := grpc.NewServer()
	// The test client drives its calls against this simple echo service.
	grpchantesting.RegisterTestServiceServer(svr, &grpchantesting.TestServer{})

	lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Listening on", lis.Addr().String())
	// This only returns (and thus program exits) on failure.
	// Otherwise, process is stopped via signal.
	if err := svr.Serve(lis); err != nil {
		log.Fatal(err)
	}
}
