package services

import "context"

// Settler moves reward units to a wallet through the external ledger and
// returns the transaction hash. Amounts are whole reward units; any
// decimals conversion for the ledger's native denomination is the
// implementation's concern.
//
// A transfer is a single best-effort attempt: implementations do not retry
// internally, because the ledger gives no idempotency guarantee and a retry
// of a timed-out call can pay twice. Retries are an operator concern.
type Settler interface {
	Transfer(ctx context.Context, wallet string, amount int64) (txHash string, err error)
}
