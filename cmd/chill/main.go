package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	AppName = "chill"
	RepoURL = "https://github.com/benjamonnguyen/chilltimer"
	Version = "0.1.0"
)

type rootOptions struct {
	configFile string
	envFile    string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Meditation timer with overtime, a completion gong and a session journal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "chill.yaml", "YAML config file (optional)")
	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "env file (optional)")

	root.AddCommand(newStartCmd(&opts))
	root.AddCommand(newSettingsCmd(&opts))
	root.AddCommand(newHistoryCmd(&opts))
	return root
}
