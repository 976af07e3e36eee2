package core

import (
	"errors"
	"fmt"
)

// Sentinel rejection errors returned by Ledger.AddTransaction. Callers
// compare with errors.Is; the submission endpoint answers every rejection
// with a "Transaction rejected: <reason>" string.
var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// BadNonceError reports the nonce the ledger expected versus the one a
// rejected transaction carried.
type BadNonceError struct {
	Expected uint64
	Got      uint64
}

func (e *BadNonceError) Error() string {
	return fmt.Sprintf("bad nonce: expected %d, got %d", e.Expected, e.Got)
}

// Chain-replacement and block-admission rejection reasons. These never
// reach the submission endpoint; they are logged and the peer message is
// dropped (SPEC_FULL.md §7).
var (
	ErrChainNotLonger    = errors.New("candidate chain is not longer than local chain")
	ErrChainBrokenLink   = errors.New("candidate chain has a broken hash link")
	ErrChainHashMismatch = errors.New("candidate chain has a block with a mismatched hash")
	ErrBlockNonExtending = errors.New("block does not strictly extend the local tip")
)
