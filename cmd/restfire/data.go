package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/restfire"
)

func (c *cli) newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
				value, err := restfire.GetValue[any](ref).Wait(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(cmd, value)
			})
		},
	}
}

func (c *cli) newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <json>",
		Short: "Overwrite the value at a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseJSONArg("value", args[1])
			if err != nil {
				return err
			}
			return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
				result, err := restfire.SetValue(ref, value).Wait(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(cmd, result)
			})
		},
	}
}

func (c *cli) newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <path> <json-object>",
		Short: "Merge the keys of a JSON object into the value at a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseJSONArg("value", args[1])
			if err != nil {
				return err
			}
			updates, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("update value must be a JSON object")
			}
			return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
				result, err := restfire.UpdateValue(ref, updates).Wait(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(cmd, result)
			})
		},
	}
}

func (c *cli) newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Delete the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
				_, err := ref.RemoveValue().Wait(cmd.Context())
				return err
			})
		},
	}
}

type pushOutput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (c *cli) newPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push <path> [json]",
		Short: "Create a child with a generated key, optionally setting its value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any
			if len(args) > 1 {
				var err error
				value, err = parseJSONArg("value", args[1])
				if err != nil {
					return err
				}
			}

			return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
				child, err := ref.Push().Wait(cmd.Context())
				if err != nil {
					return err
				}
				if value != nil {
					if _, err := restfire.SetValue(child, value).Wait(cmd.Context()); err != nil {
						return err
					}
				}
				return c.printJSON(cmd, pushOutput{
					Name: child.Key(),
					URL:  child.ReferenceURL(),
				})
			})
		},
	}
}

func (c *cli) newPriorityCommand() *cobra.Command {
	priorityCmd := &cobra.Command{
		Use:   "priority",
		Short: "Read or change the priority of a node",
	}

	priorityCmd.AddCommand(
		&cobra.Command{
			Use:   "get <path>",
			Short: "Print the priority of a node",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
					priority, err := ref.GetPriority().Wait(cmd.Context())
					if err != nil {
						return err
					}
					return c.printJSON(cmd, priority)
				})
			},
		},
		&cobra.Command{
			Use:   "set <path> <json>",
			Short: "Set the priority of a node (number or string)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				priority, err := parseJSONArg("priority", args[1])
				if err != nil {
					return err
				}
				return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
					result, err := ref.SetPriority(priority).Wait(cmd.Context())
					if err != nil {
						return err
					}
					return c.printJSON(cmd, result)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <path>",
			Short: "Remove the priority of a node",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withReference(cmd, args[0], func(ref *restfire.Reference) error {
					_, err := ref.RemovePriority().Wait(cmd.Context())
					return err
				})
			},
		},
	)
	return priorityCmd
}
