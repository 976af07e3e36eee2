// Package services wraps the core ledger for the HTTP handlers, the way the
// teacher's walletserver/services wraps core wallet operations.
package services

import "github.com/Crypto1-dev/CaciaCC/core"

// TxBroadcaster hands a newly admitted transaction to the peer layer.
// Implemented by network.Node.BroadcastTx; kept as a function type so
// services never imports network.
type TxBroadcaster func(core.Transaction) error

// LedgerService exposes the subset of ledger operations the submission
// endpoint needs, plus the broadcast hook triggered on acceptance.
type LedgerService struct {
	ledger    *core.Ledger
	broadcast TxBroadcaster
}

// NewLedgerService constructs a LedgerService. broadcast may be nil, in
// which case accepted transactions are never propagated (useful in tests).
func NewLedgerService(ledger *core.Ledger, broadcast TxBroadcaster) *LedgerService {
	return &LedgerService{ledger: ledger, broadcast: broadcast}
}

// SubmitTransaction admits tx to the mempool and, on acceptance, triggers a
// broadcast. Broadcast errors are not surfaced to the caller; the
// transaction was already accepted by the ledger.
func (s *LedgerService) SubmitTransaction(tx core.Transaction) error {
	if err := s.ledger.AddTransaction(tx); err != nil {
		return err
	}
	if s.broadcast != nil {
		_ = s.broadcast(tx)
	}
	return nil
}

// Chain returns a snapshot of the current chain.
func (s *LedgerService) Chain() []core.Block {
	return s.ledger.GetChain()
}

// Balance returns addr's balance.
func (s *LedgerService) Balance(addr core.Address) uint64 {
	return s.ledger.GetBalance(addr)
}
