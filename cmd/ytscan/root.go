package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ytscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ytscan",
		Short: "Collect statistics of YouTube channels and videos",
		Long: `ytscan reads the ytInitialData document embedded in YouTube pages and
reports what it finds about channels and videos: names, subscribers, views,
likes, comments and publication dates.

Channel scans analyze the latest videos of the channel and sum their counts.
Every scan is stored in a local history database so that later scans can be
compared with 'ytscan compare'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
