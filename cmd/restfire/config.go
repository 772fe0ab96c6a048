package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/restfire/internal/config"
)

func (c *cli) configFilePath() string {
	if len(c.configPath) > 0 {
		return c.configPath
	}
	return config.DefaultPath()
}

func (c *cli) newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the config file",
	}

	var eventBufferSize int
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store --url, --auth and --event-buffer-size in the config file",
		Example: `  restfire config set --url https://my-db.example.com --auth "$TOKEN"
  restfire config set --auth ""   # remove the stored credential`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("url") && !flags.Changed("auth") && !flags.Changed("event-buffer-size") {
				return errors.New("nothing to set, use --url, --auth or --event-buffer-size")
			}

			path := c.configFilePath()
			if len(path) == 0 {
				return errors.New("home directory is unknown, use --config")
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if flags.Changed("url") {
				cfg.URL = c.url
			}
			if flags.Changed("auth") {
				cfg.Auth = c.auth
			}
			if flags.Changed("event-buffer-size") {
				if eventBufferSize < 0 {
					return fmt.Errorf("event-buffer-size must not be negative")
				}
				cfg.EventBufferSize = eventBufferSize
			}

			if err := config.Save(path, cfg); err != nil {
				return fmt.Errorf("write config file %s: %w", path, err)
			}
			return c.printJSON(cmd, cfg)
		},
	}
	setCmd.Flags().IntVar(&eventBufferSize, "event-buffer-size", 0, "capacity of the event channel of each listener")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the config file, environment variables and flags are not applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configFilePath())
			if err != nil {
				return err
			}
			return c.printJSON(cmd, cfg)
		},
	}

	configCmd.AddCommand(setCmd, showCmd)
	return configCmd
}
