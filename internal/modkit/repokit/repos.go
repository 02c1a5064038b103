// Package repokit provides common types and helpers for repository implementations
package repokit

import (
	"context"

	"bestsellers/internal/platform/store"
)

// Queryer is the read and write surface SQL repos are written against
type Queryer = store.RowQuerier

// TxRunner runs a function inside one transaction
type TxRunner = store.TxRunner

type (
	// Rows is a multi row result set
	Rows = store.Rows

	// Row is a single row result
	Row = store.Row

	// CommandTag reports the outcome of a mutating command
	CommandTag = store.CommandTag
)

// WithTx runs fn inside a transaction on the given TxRunner
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}
