package services

import "fmt"

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError means no identity record exists for the wallet.
type NotFoundError struct {
	Wallet string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user not found for wallet %s", e.Wallet)
}

// IneligibleError means a cooldown, cap, or state precondition is not met.
// RetryAfterHours is set for time-gated rejections (whole hours, rounded up).
type IneligibleError struct {
	Reason          string
	RetryAfterHours int
}

func (e *IneligibleError) Error() string { return e.Reason }

// TransferError means the external settlement failed or timed out. No local
// record was mutated, so the caller may safely retry.
type TransferError struct {
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("token transfer failed: %v", e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// InconsistencyError means settlement succeeded but the eligibility record
// could not be updated afterwards. The ledger and local state have diverged;
// this must never be reported as an ordinary failure.
type InconsistencyError struct {
	TxHash string
	Err    error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("settlement %s committed but record update failed: %v", e.TxHash, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }
