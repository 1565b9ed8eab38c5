// Package ledger mirrors the transaction CRUD and dashboard aggregation of
// the Finora backend in session-scoped storage, for operating without an
// authenticated backend session (guest mode).
//
// Data lives behind a small Storage port holding one JSON array under a
// namespaced key, so the store is testable without a browser-like host and
// portable to any backend offering the same session-scoped get/set/remove
// semantics. Everything is wiped by Clear on logout so guest data never
// leaks into a later authenticated session on the same device.
package ledger
