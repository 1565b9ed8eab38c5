package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	dashMonth int
	dashYear  int
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the monthly dashboard from the local ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLedger()
		if err != nil {
			return fail(err)
		}

		now := time.Now()
		month := time.Month(dashMonth)
		year := dashYear
		if dashMonth == 0 {
			month = now.Month()
		}
		if dashYear == 0 {
			year = now.Year()
		}

		d, err := store.Dashboard(month, year)
		if err != nil {
			return fail(err)
		}

		fmt.Fprintf(os.Stdout, "%s %d\n", month, year)
		fmt.Fprintf(os.Stdout, "  income   %s  (%+d%%)\n", d.CurrentMonth.Income.StringFixed(2), d.Trends.Income)
		fmt.Fprintf(os.Stdout, "  expense  %s  (%+d%%)\n", d.CurrentMonth.Expense.StringFixed(2), d.Trends.Expense)
		fmt.Fprintf(os.Stdout, "  balance  %s  (%+d%%)\n", d.CurrentMonth.Balance.StringFixed(2), d.Trends.Balance)
		fmt.Fprintf(os.Stdout, "  %d transactions this month\n", d.CurrentMonth.TransactionCount)

		if len(d.Categories) > 0 {
			fmt.Fprintln(os.Stdout, "\nBy category:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, c := range d.Categories {
				fmt.Fprintf(w, "  %s\t%s\t%s\t(%d)\n", c.Type, c.Category, c.Total.StringFixed(2), c.Count)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		fmt.Fprintln(os.Stdout, "\nLast six months:")
		for _, p := range d.MonthlyTrend {
			fmt.Fprintf(os.Stdout, "  %s %d: +%s / -%s\n",
				p.Month.String()[:3], p.Year, p.Income.StringFixed(2), p.Expense.StringFixed(2))
		}

		return nil
	},
}

func init() {
	dashboardCmd.Flags().IntVar(&dashMonth, "month", 0, "month 1-12 (default current)")
	dashboardCmd.Flags().IntVar(&dashYear, "year", 0, "year (default current)")
}
