package main

import (
	"os"

	_ "github.com/alexandreLamarre/padlock/pkg/lock/backend/native"
	_ "github.com/alexandreLamarre/padlock/pkg/lock/backend/padlock"
	"github.com/alexandreLamarre/padlock/pkg/version"
	"github.com/spf13/cobra"
)

func main() {
	if err := BuildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func BuildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "padlock",
		Short:        "Benchmark in-memory lock implementations",
		SilenceUsage: true,
	}
	cmd.AddCommand(BuildBenchCmd())
	cmd.AddCommand(BuildVersionCmd())
	return cmd
}

func BuildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the padlock version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.FriendlyVersion())
		},
	}
}
