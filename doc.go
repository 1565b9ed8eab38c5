// Package finora is the Go client for the Finora personal-finance API,
// pairing a resilient request pipeline with a guest-mode local ledger:
//
//   - Response caching with TTL, lazy eviction and pattern invalidation
//   - Request de-duplication (merges concurrent identical in-flight requests)
//   - Retries with capped exponential backoff and symmetric jitter,
//     classified by error type
//   - Bearer authentication with one-shot 401 refresh-and-replay
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area, functional options configure everything
//   - Explicitly constructed, injectable cache / deduplication / retry
//     instances instead of package-level singletons
//   - Safe concurrent use of a single *Client instance
//
// Typical usage:
//
//	client := finora.New(
//	    finora.WithBaseURL("https://api.finora.app"),
//	    finora.WithCache(5*time.Minute),
//	    finora.WithMaxAttempts(3),
//	)
//	txs := finora.NewTransactionsService(client)
//	page, err := txs.List(ctx, finora.ListQuery{Type: "expense"})
//
// The ledger subpackage mirrors the transaction CRUD and dashboard
// aggregation entirely in session-scoped storage for use without a backend
// session.
package finora
