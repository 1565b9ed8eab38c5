package cli

import (
	"context"
	"fmt"
	"os"

	finora "github.com/YoussefDawod/finora-smart-finance-sub003"
	"github.com/spf13/cobra"
)

var summaryToken string

// summaryCmd talks to the backend and therefore needs FINORA_API_URL plus a
// session token. Guest-mode users get the dashboard command instead.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Fetch aggregate statistics from the Finora API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := finora.LoadConfig()
		if !cfg.EnableStatistics {
			fmt.Fprintln(os.Stderr, "Statistics are disabled (FINORA_ENABLE_STATISTICS=false).")
			return nil
		}

		opts := append(cfg.ClientOptions(), finora.WithToken(summaryToken))
		client := finora.New(opts...)
		if err := client.ValidationError(); err != nil {
			return fail(err)
		}

		txs := finora.NewTransactionsService(client)
		summary, err := txs.Summary(context.Background(), 0, 0)
		if err != nil {
			return fail(err)
		}

		fmt.Fprintf(os.Stdout, "income   %s\n", summary.TotalIncome.StringFixed(2))
		fmt.Fprintf(os.Stdout, "expense  %s\n", summary.TotalExpense.StringFixed(2))
		fmt.Fprintf(os.Stdout, "balance  %s\n", summary.Balance.StringFixed(2))
		fmt.Fprintf(os.Stdout, "count    %d\n", summary.TransactionCount)
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryToken, "token", "", "bearer token for the API session")
}
