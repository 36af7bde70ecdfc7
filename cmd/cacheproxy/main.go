package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
)

var version = "dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	driver     string
	ttl        string
	hash       string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "cacheproxy",
		Short:         "Memoize expensive calls behind a caching proxy",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initLogger(cmd, flags.verbose)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.driver, "driver", "", "cache driver: memory, lru, sturdyc, redis, sqlite")
	pf.StringVar(&flags.ttl, "ttl", "", "entry lifetime, e.g. 90s")
	pf.StringVar(&flags.hash, "hash", "", "fingerprint hash: md5, sha1, sha256, xxhash")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log proxy events")

	root.AddCommand(
		newDemoCmd(flags),
		newFingerprintCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

// initLogger sends logs to stderr; CACHEPROXY_LOG or --verbose pick the level.
func initLogger(cmd *cobra.Command, verbose bool) {
	log.SetHandler(cli.New(cmd.ErrOrStderr()))

	level := os.Getenv("CACHEPROXY_LOG")
	if verbose {
		level = "debug"
	}
	if level == "" {
		level = "warn"
	}
	if err := log.SetLevelFromString(level); err != nil {
		log.SetLevel(log.WarnLevel)
	}
}
