package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/YoussefDawod/finora-smart-finance-sub003/ledger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Manage guest-mode transactions",
}

var (
	addType     string
	addAmount   string
	addCategory string
	addDesc     string
	addDate     string
	addTags     []string
	addNotes    string
)

var txAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction in the local ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLedger()
		if err != nil {
			return fail(err)
		}

		amount, err := decimal.NewFromString(addAmount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", addAmount, err)
		}

		tx := ledger.Transaction{
			Type:        addType,
			Amount:      amount,
			Category:    addCategory,
			Description: addDesc,
			Tags:        addTags,
			Notes:       addNotes,
		}
		if addDate != "" {
			date, err := time.Parse("2006-01-02", addDate)
			if err != nil {
				return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", addDate)
			}
			tx.Date = date
		}

		created, err := store.Create(tx)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "Recorded %s %s (%s) as %s\n",
			created.Type, created.Amount.StringFixed(2), created.Category, created.ID)
		return nil
	},
}

var (
	listType   string
	listCat    string
	listSearch string
	listSort   string
	listOrder  string
	listPage   int
	listLimit  int
)

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions from the local ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLedger()
		if err != nil {
			return fail(err)
		}

		page, err := store.List(ledger.ListOptions{
			Type:      listType,
			Category:  listCat,
			Search:    listSearch,
			SortBy:    listSort,
			SortOrder: listOrder,
			Page:      listPage,
			Limit:     listLimit,
		})
		if err != nil {
			return fail(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
		for _, tx := range page.Transactions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				tx.ID, tx.Date.Format("2006-01-02"), tx.Type,
				tx.Amount.StringFixed(2), tx.Category, tx.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "page %d/%d, %d total\n",
			page.Pagination.Page, page.Pagination.Pages, page.Pagination.Total)
		return nil
	},
}

var txRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a transaction from the local ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLedger()
		if err != nil {
			return fail(err)
		}
		if err := store.Delete(args[0]); err != nil {
			return fail(err)
		}
		fmt.Fprintln(os.Stdout, "Deleted.")
		return nil
	},
}

var txClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe all guest-mode transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLedger()
		if err != nil {
			return fail(err)
		}
		store.Clear()
		fmt.Fprintln(os.Stdout, "Local ledger cleared.")
		return nil
	},
}

func init() {
	txAddCmd.Flags().StringVar(&addType, "type", "expense", "transaction type (income|expense)")
	txAddCmd.Flags().StringVar(&addAmount, "amount", "", "amount (required)")
	txAddCmd.Flags().StringVar(&addCategory, "category", "", "category")
	txAddCmd.Flags().StringVar(&addDesc, "desc", "", "description")
	txAddCmd.Flags().StringVar(&addDate, "date", "", "date (YYYY-MM-DD, default today)")
	txAddCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag (repeatable)")
	txAddCmd.Flags().StringVar(&addNotes, "notes", "", "free-form notes")
	_ = txAddCmd.MarkFlagRequired("amount")

	txListCmd.Flags().StringVar(&listType, "type", "", "filter by type")
	txListCmd.Flags().StringVar(&listCat, "category", "", "filter by category")
	txListCmd.Flags().StringVar(&listSearch, "search", "", "free-text filter")
	txListCmd.Flags().StringVar(&listSort, "sort", "date", "sort field (date|amount)")
	txListCmd.Flags().StringVar(&listOrder, "order", "desc", "sort order (asc|desc)")
	txListCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	txListCmd.Flags().IntVar(&listLimit, "limit", 10, "page size")

	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txListCmd)
	txCmd.AddCommand(txRmCmd)
	txCmd.AddCommand(txClearCmd)
}
