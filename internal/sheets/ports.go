package sheets

import (
	"context"

	"cadence/internal/core"
)

// Ports for outbound ledger export adapters.
type (
	// LedgerWriter appends one ledger transaction to the external sheet.
	LedgerWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
