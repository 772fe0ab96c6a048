package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/QuangTung97/restfire"
)

func main() {
	db, err := restfire.NewDatabase(
		os.Getenv("RESTFIRE_URL"),
		restfire.NewHTTPTransport(nil),
		restfire.WithCredential(os.Getenv("RESTFIRE_AUTH")),
	)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ref, err := db.Reference("/sample/workers")
	if err != nil {
		panic(err)
	}

	restfire.SetValue(ref, map[string]any{
		"worker01": "data01",
		"updated":  restfire.ServerTimestamp(),
	}).OnComplete(func(value map[string]any, err error) {
		fmt.Println("SET COMPLETED:", value, err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	value, err := restfire.GetValue[map[string]any](ref).Wait(ctx)
	fmt.Println("GET RESP:", value, err)

	stream := ref.EventStream()
	listener, err := stream.StartListening()
	if err != nil {
		panic(err)
	}
	listener.OnComplete(func(err error) {
		fmt.Println("LISTENER ENDED:", err)
	})

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)

	for i := 0; i < 60; i++ {
		select {
		case ev, ok := <-listener.Events():
			if !ok {
				return
			}
			fmt.Println("EVENT:", ev)
		case <-time.After(1 * time.Second):
			fmt.Println("SLEPT:", i+1)
		case <-ch:
			_ = stream.StopListening()
			return
		}
	}
	_ = stream.StopListening()
}
