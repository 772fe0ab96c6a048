package main

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/QuangTung97/restfire"
)

type eventOutput struct {
	Stream string `json:"stream"`
	Type   string `json:"type"`
	Path   string `json:"path"`
	Data   any    `json:"data"`
}

type snapshotOutput struct {
	Stream string `json:"stream"`
	Value  any    `json:"value"`
}

type listenOptions struct {
	snapshot  bool
	maxEvents int
}

func (c *cli) newListenCommand() *cobra.Command {
	opts := listenOptions{}

	listenCmd := &cobra.Command{
		Use:   "listen <path>...",
		Short: "Print the changes of one or more paths until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			streams := make([]*restfire.EventStream, 0, len(args))
			for _, path := range args {
				stream, err := db.EventStream(path)
				if err != nil {
					return err
				}
				streams = append(streams, stream)
			}

			eg, ctx := errgroup.WithContext(cmd.Context())
			for _, stream := range streams {
				stream := stream
				eg.Go(func() error {
					return c.listen(ctx, cmd, stream, opts)
				})
			}
			return eg.Wait()
		},
	}

	listenCmd.Flags().BoolVar(&opts.snapshot, "snapshot", false, "print the whole value after each change instead of the events")
	listenCmd.Flags().IntVar(&opts.maxEvents, "max-events", 0, "stop after this number of changes (0 for no limit)")
	return listenCmd
}

//revive:disable-next-line:cognitive-complexity
func (c *cli) listen(ctx context.Context, cmd *cobra.Command, stream *restfire.EventStream, opts listenOptions) error {
	listener, err := stream.StartListening()
	if err != nil {
		return err
	}
	glog.V(1).Infof("listening to %s, session: %s", stream.ReferenceURL(), listener.ID())

	snapshot := restfire.NewSnapshot()
	count := 0

	for {
		select {
		case ev, ok := <-listener.Events():
			if !ok {
				return listener.Err()
			}

			if opts.snapshot {
				if err := snapshot.Apply(ev); err != nil {
					_ = stream.StopListening()
					return err
				}
				err = c.printJSON(cmd, snapshotOutput{
					Stream: stream.ReferenceURL(),
					Value:  snapshot.Value(),
				})
			} else {
				err = c.printEvent(cmd, stream, ev)
			}
			if err != nil {
				_ = stream.StopListening()
				return err
			}

			count++
			if opts.maxEvents > 0 && count >= opts.maxEvents {
				return stopListening(stream)
			}

		case <-ctx.Done():
			return stopListening(stream)
		}
	}
}

func (c *cli) printEvent(cmd *cobra.Command, stream *restfire.EventStream, ev restfire.StreamEvent) error {
	value, err := ev.Value()
	if err != nil {
		return err
	}
	return c.printJSON(cmd, eventOutput{
		Stream: stream.ReferenceURL(),
		Type:   ev.Type.String(),
		Path:   ev.Path,
		Data:   value,
	})
}

// stopListening ignores a session that already ended by itself.
func stopListening(stream *restfire.EventStream) error {
	err := stream.StopListening()
	if errors.Is(err, restfire.ErrNotActive) {
		return nil
	}
	return err
}
