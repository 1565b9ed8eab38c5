// Finora is a terminal client for the Finora personal-finance tracker.
//
// Without an API session it keeps a local guest ledger:
//
//	finora tx add --amount 12.50 --category groceries
//	finora tx list --type expense
//	finora dashboard --month 8 --year 2026
//	finora tx clear
//
// With FINORA_API_URL set and a token, summary statistics come from the
// backend:
//
//	finora summary --token <jwt>
package main

import (
	"os"

	"github.com/YoussefDawod/finora-smart-finance-sub003/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
