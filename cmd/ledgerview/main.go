package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ledgerview/internal/config"
	"ledgerview/internal/log"
)

var version = "dev"

// app holds what every command needs once the root pre-run has finished.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	fallback bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ledgerview",
		Short:         "Track expenses on a remote ledger with a local fallback",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional outside development.
			_ = godotenv.Load()

			a.cfg = config.Load()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			a.logger = log.New(log.Config{
				Level:     log.ParseLevel(a.cfg.LogLevel),
				Component: log.ComponentCLI,
				Output:    os.Stderr,
			})
			log.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&a.fallback, "fallback", false, "use the local fallback store instead of the remote ledger")

	root.AddCommand(serveCmd(a))
	root.AddCommand(listCmd(a))
	root.AddCommand(summaryCmd(a))
	root.AddCommand(addCmd(a))
	root.AddCommand(deleteCmd(a))
	root.AddCommand(watchCmd(a))
	root.AddCommand(categoriesCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
