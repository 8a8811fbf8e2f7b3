package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/linkmemory/internal/cli"
	"codeberg.org/snonux/linkmemory/internal/processor"
)

func main() {
	flags := cli.NewFlags()
	rootCmd := cli.CreateRootCommand(flags)

	cobra.OnInitialize(func() {
		cli.SetupLogging(os.Stderr, flags.Verbose)
		cli.InitConfig(flags.CfgFile)
	})

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	flags.ApplyConfig()
	if len(args) > 0 {
		flags.Category = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Archive {
		return processor.ArchiveExports(flags, os.Stdout)
	}
	if flags.ClearImageCache {
		return processor.ClearImageCache(flags, os.Stdout)
	}

	if flags.ListModels {
		provider := ""
		if cmd.Flags().Changed("provider") {
			provider = flags.Provider
		}
		return processor.ListModels(ctx, provider, os.Stdout)
	}

	proc, err := processor.NewProcessor(ctx, flags, nil)
	if err != nil {
		return err
	}

	if flags.Serve != "" {
		return proc.RunServer(ctx, flags.Serve, os.Stdout)
	}

	if err := proc.RunStudy(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("study session failed: %w", err)
	}
	return nil
}

