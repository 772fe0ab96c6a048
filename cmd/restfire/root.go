package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/QuangTung97/restfire"
	"github.com/QuangTung97/restfire/glogger"
	"github.com/QuangTung97/restfire/internal/config"
)

type cli struct {
	configPath string
	url        string
	auth       string

	// nil means net/http
	transport restfire.Transport

	outMut sync.Mutex
}

func newRootCommand(transport restfire.Transport) *cobra.Command {
	c := &cli{
		transport: transport,
	}

	rootCmd := &cobra.Command{
		Use:   "restfire",
		Short: "Read, write and listen to a REST + event stream JSON database",
		Long: `restfire - command line client of hierarchical JSON databases exposing a REST API.

The database url and credential are read from the config file (~/.restfire.json),
then from the RESTFIRE_URL / RESTFIRE_AUTH environment variables, then from the flags.`,
		SilenceUsage: true,
	}

	c.addConnectionFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(
		c.newGetCommand(),
		c.newSetCommand(),
		c.newUpdateCommand(),
		c.newRemoveCommand(),
		c.newPushCommand(),
		c.newPriorityCommand(),
		c.newQueryCommand(),
		c.newListenCommand(),
		c.newRulesCommand(),
		c.newConfigCommand(),
	)
	return rootCmd
}

func (c *cli) addConnectionFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.restfire.json)")
	flags.StringVar(&c.url, "url", "", "database base url, e.g. https://my-db.example.com")
	flags.StringVar(&c.auth, "auth", "", "credential sent as the auth query parameter")
}

func (c *cli) openDatabase(cmd *cobra.Command) (*restfire.Database, error) {
	cfg, err := config.Resolve(c.configFilePath(), c.url, c.auth)
	if err != nil {
		return nil, err
	}

	options := []restfire.Option{
		restfire.WithLogger(glogger.New("[RESTFIRE] ")),
		restfire.WithContext(cmd.Context()),
	}
	if len(cfg.Auth) > 0 {
		options = append(options, restfire.WithCredential(cfg.Auth))
	}
	if cfg.EventBufferSize > 0 {
		options = append(options, restfire.WithEventBufferSize(cfg.EventBufferSize))
	}

	transport := c.transport
	if transport == nil {
		transport = restfire.NewHTTPTransport(nil)
	}
	return restfire.NewDatabase(cfg.URL, transport, options...)
}

// printJSON writes one indented JSON document to the command output.
func (c *cli) printJSON(cmd *cobra.Command, value any) error {
	c.outMut.Lock()
	defer c.outMut.Unlock()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func parseJSONArg(name string, arg string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(arg), &value); err != nil {
		return nil, fmt.Errorf("%s is not a valid JSON value: %w", name, err)
	}
	return value, nil
}

// withReference opens the database and the reference of path for fn.
func (c *cli) withReference(
	cmd *cobra.Command, path string,
	fn func(ref *restfire.Reference) error,
) error {
	db, err := c.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ref, err := db.Reference(path)
	if err != nil {
		return fmt.Errorf("invalid path '%s': %w", path, err)
	}
	return fn(ref)
}
