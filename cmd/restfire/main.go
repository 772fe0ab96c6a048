package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand(nil).ExecuteContext(ctx)
	stop()
	glog.Flush()

	if err != nil {
		os.Exit(1)
	}
}
