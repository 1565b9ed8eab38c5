package cli

import (
	"fmt"
	"os"

	finora "github.com/YoussefDawod/finora-smart-finance-sub003"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "finora",
	Short: "Personal finance tracking from the terminal",
	Long: "Finora tracks income and expenses against the Finora API, or fully " +
		"locally in guest mode when no API session is configured.",
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stdout, finora.GetVersion())
	},
}

func fail(err error) error {
	exitCode = ExitRuntimeError
	return err
}
