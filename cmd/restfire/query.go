package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/QuangTung97/restfire"
)

type queryFlags struct {
	orderByKey      bool
	orderByValue    bool
	orderByPriority bool
	orderByChild    string

	startAt string
	endAt   string
	equalTo string

	limitFirst int
	limitLast  int
}

func (f *queryFlags) register(flags *pflag.FlagSet) {
	flags.BoolVar(&f.orderByKey, "order-by-key", false, "order children by key")
	flags.BoolVar(&f.orderByValue, "order-by-value", false, "order children by value")
	flags.BoolVar(&f.orderByPriority, "order-by-priority", false, "order children by priority")
	flags.StringVar(&f.orderByChild, "order-by-child", "", "order children by the value of this child")

	flags.StringVar(&f.startAt, "start-at", "", "JSON value the results start at")
	flags.StringVar(&f.endAt, "end-at", "", "JSON value the results end at")
	flags.StringVar(&f.equalTo, "equal-to", "", "JSON value the results are equal to")

	flags.IntVar(&f.limitFirst, "limit-first", 0, "keep only the first N results")
	flags.IntVar(&f.limitLast, "limit-last", 0, "keep only the last N results")
}

func (f *queryFlags) orderCount() int {
	count := 0
	for _, set := range []bool{f.orderByKey, f.orderByValue, f.orderByPriority, len(f.orderByChild) > 0} {
		if set {
			count++
		}
	}
	return count
}

// apply sets the filters of q, flags.Changed tells which filters were given.
//
//revive:disable-next-line:cognitive-complexity,cyclomatic
func (f *queryFlags) apply(flags *pflag.FlagSet, q *restfire.Query) error {
	if f.orderCount() != 1 {
		return errors.New("exactly one of --order-by-key, --order-by-value, --order-by-priority, --order-by-child is required")
	}

	var err error
	switch {
	case f.orderByKey:
		err = q.OrderByKey()
	case f.orderByValue:
		err = q.OrderByValue()
	case f.orderByPriority:
		err = q.OrderByPriority()
	default:
		err = q.OrderByChild(f.orderByChild)
	}
	if err != nil {
		return err
	}

	bounds := []struct {
		name  string
		value string
		set   func(v any) error
	}{
		{name: "start-at", value: f.startAt, set: q.StartAt},
		{name: "end-at", value: f.endAt, set: q.EndAt},
		{name: "equal-to", value: f.equalTo, set: q.EqualTo},
	}
	for _, b := range bounds {
		if !flags.Changed(b.name) {
			continue
		}
		value, err := parseJSONArg(b.name, b.value)
		if err != nil {
			return err
		}
		if err := b.set(value); err != nil {
			return err
		}
	}

	if flags.Changed("limit-first") {
		if err := q.LimitToFirst(f.limitFirst); err != nil {
			return err
		}
	}
	if flags.Changed("limit-last") {
		if err := q.LimitToLast(f.limitLast); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) newQueryCommand() *cobra.Command {
	f := &queryFlags{}

	queryCmd := &cobra.Command{
		Use:   "query <path>",
		Short: "Print the children of a path, filtered and limited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
				q := ref.Query()
				if err := f.apply(cmd.Flags(), q); err != nil {
					return err
				}

				value, err := restfire.RunQuery[any](q).Wait(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(cmd, value)
			})
		},
	}
	f.register(queryCmd.Flags())
	return queryCmd
}
