package core

import (
	"math/bits"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// GenesisTreasurySupply is the default treasury balance minted into the
// genesis block, matching SPEC_FULL.md §3 (10^17 units = 10^9 coin).
const GenesisTreasurySupply uint64 = 100_000_000_000_000_000

// checkedAdd returns a+b and whether the addition overflowed a uint64,
// honoring SPEC_FULL.md §3's "all arithmetic is checked; no operation may
// wrap" invariant.
func checkedAdd(a, b uint64) (sum uint64, ok bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// Ledger is the node's single shared mutable state: the append-only chain,
// account balances, per-sender nonces, static validator stakes, and the
// pending mempool. Every public method takes the ledger's lock for its full
// duration and never performs I/O while holding it (SPEC_FULL.md §5).
type Ledger struct {
	mu sync.RWMutex

	chain    []Block
	balances map[Address]uint64
	nonces   map[Address]uint64
	stakes   map[Address]uint64
	mempool  []Transaction

	logger *logrus.Logger
}

// NewLedger constructs a ledger seeded with a single genesis block (index 0,
// all-zero previous hash, validator genesis_validator) crediting treasury
// with supply units, plus the given initial stake table. stakes may be nil
// or empty; seeding happens once, before any producer or peer loop starts
// (SPEC_FULL.md §3).
func NewLedger(supply uint64, stakes map[Address]uint64, logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	genesis := Block{
		Index:        0,
		Timestamp:    time.Now().Unix(),
		Transactions: []Transaction{},
		PreviousHash: ZeroHash,
		Validator:    GenesisValidator,
	}
	genesis.Hash = genesis.ComputeHash()

	st := make(map[Address]uint64, len(stakes))
	for k, v := range stakes {
		st[k] = v
	}

	l := &Ledger{
		chain:    []Block{genesis},
		balances: map[Address]uint64{Treasury: supply},
		nonces:   make(map[Address]uint64),
		stakes:   st,
		mempool:  nil,
		logger:   logger,
	}
	logger.Infof("ledger: genesis block created, treasury funded with %d units", supply)
	return l
}

// Credit adds amount to addr's balance. Used only by the orchestrator
// during startup seeding, before the producer or peer loops run; not part
// of the consensus path. A credit that would overflow the balance is logged
// and not applied.
func (l *Ledger) Credit(addr Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum, ok := checkedAdd(l.balances[addr], amount)
	if !ok {
		l.logger.Warnf("ledger: credit of %d to %s would overflow; balance unchanged", amount, addr)
		return
	}
	l.balances[addr] = sum
}

// AddTransaction validates and admits tx to the mempool. It returns one of
// ErrInvalidSignature, *BadNonceError, or ErrInsufficientFunds on
// rejection, unwrapped, so errors.Is/errors.As both work against the
// returned error.
func (l *Ledger) AddTransaction(tx Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !tx.VerifySignature() {
		l.logger.Warnf("ledger: rejected tx from %s: invalid signature", tx.Sender)
		return ErrInvalidSignature
	}

	expected := l.nonces[tx.Sender]
	if tx.Nonce != expected {
		l.logger.Warnf("ledger: rejected tx from %s: bad nonce (expected %d, got %d)", tx.Sender, expected, tx.Nonce)
		return &BadNonceError{Expected: expected, Got: tx.Nonce}
	}

	cost, overflow := checkedAdd(tx.Amount, tx.Fee)
	balance := l.balances[tx.Sender]
	if overflow || balance < cost {
		l.logger.Warnf("ledger: rejected tx from %s: insufficient funds", tx.Sender)
		return ErrInsufficientFunds
	}

	l.mempool = append(l.mempool, tx)
	l.nonces[tx.Sender] = expected + 1
	return nil
}

// CreateBlock drains the mempool into a newly assembled, unapplied block.
// It returns (Block{}, false) if the mempool is empty — this ledger never
// produces empty blocks (SPEC_FULL.md §4.3, open question resolved).
// CreateBlock does not apply the block; callers must call ApplyBlock
// themselves, which takes the lock again. The Producer instead creates and
// applies a block within one lock acquisition.
func (l *Ledger) CreateBlock() (Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createBlockLocked()
}

func (l *Ledger) createBlockLocked() (Block, bool) {
	if len(l.mempool) == 0 {
		return Block{}, false
	}
	txs := l.mempool
	l.mempool = nil

	tip := l.chain[len(l.chain)-1]
	blk := Block{
		Index:        tip.Index + 1,
		Timestamp:    time.Now().Unix(),
		Transactions: txs,
		PreviousHash: tip.Hash,
		Validator:    selectValidator(l.stakes),
	}
	blk.Hash = blk.ComputeHash()
	return blk, true
}

// ApplyBlock applies block's transactions to balances and appends block to
// the chain unconditionally once transaction processing finishes. Per
// transaction: signature is re-verified (invalid signatures are skipped,
// never fatal); if the sender's balance covers amount+fee, sender is
// debited amount+fee, receiver credited amount, and block.Validator
// credited fee; otherwise the transaction is silently skipped and its fee
// is not collected (invariant L4). This silent-skip path can occur even
// for a transaction that was validly admitted to the mempool, if an
// earlier transaction in the same block already drained the sender; the
// nonce increment from admission is NOT rolled back (SPEC_FULL.md §9).
func (l *Ledger) ApplyBlock(block Block) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyBlockLocked(block)
}

func (l *Ledger) applyBlockLocked(block Block) {
	for _, tx := range block.Transactions {
		if !tx.VerifySignature() {
			l.logger.Warnf("ledger: skipping tx in block %d: invalid signature", block.Index)
			continue
		}
		cost, overflow := checkedAdd(tx.Amount, tx.Fee)
		if overflow || l.balances[tx.Sender] < cost {
			l.logger.Warnf("ledger: skipping tx from %s in block %d: insufficient balance at apply time", tx.Sender, block.Index)
			continue
		}

		// Debit and credits are staged in a scratch map, read-through to
		// l.balances, before anything is written back. This keeps a
		// sender/receiver/validator alias (e.g. the validator paying its
		// own fee to itself) correct instead of silently losing an update
		// to a stale read of the live map.
		scratch := map[Address]uint64{tx.Sender: l.balances[tx.Sender]}
		get := func(addr Address) uint64 {
			if v, ok := scratch[addr]; ok {
				return v
			}
			return l.balances[addr]
		}

		scratch[tx.Sender] = get(tx.Sender) - cost

		receiverBalance, ok := checkedAdd(get(tx.Receiver), tx.Amount)
		if !ok {
			l.logger.Warnf("ledger: skipping tx from %s in block %d: receiver balance would overflow", tx.Sender, block.Index)
			continue
		}
		scratch[tx.Receiver] = receiverBalance

		validatorBalance, ok := checkedAdd(get(block.Validator), tx.Fee)
		if !ok {
			l.logger.Warnf("ledger: skipping tx from %s in block %d: validator %s balance would overflow", tx.Sender, block.Index, block.Validator)
			continue
		}
		scratch[block.Validator] = validatorBalance

		for addr, bal := range scratch {
			l.balances[addr] = bal
		}
	}
	l.chain = append(l.chain, block)
	l.logger.Infof("ledger: applied block %d (%d tx) by %s", block.Index, len(block.Transactions), block.Validator)
}

// ValidateChain walks the chain from genesis and reports whether every
// block's previous_hash matches its predecessor's hash, every block's hash
// recomputes correctly, and genesis's previous_hash is the all-zero value.
func (l *Ledger) ValidateChain() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return validateChain(l.chain)
}

func validateChain(chain []Block) bool {
	if len(chain) == 0 {
		return false
	}
	if chain[0].PreviousHash != ZeroHash {
		return false
	}
	prevHash := ZeroHash
	for i := range chain {
		b := chain[i]
		if b.PreviousHash != prevHash {
			return false
		}
		if b.Hash != b.ComputeHash() {
			return false
		}
		prevHash = b.Hash
	}
	return true
}

// ReplaceChain replaces the local chain with candidate if candidate is
// strictly longer AND every pairwise hash link holds AND every block's
// hash recomputes (this ledger always revalidates, resolving the open
// question in SPEC_FULL.md §9). On acceptance the mempool is dropped. On
// rejection, one of ErrChainNotLonger, ErrChainBrokenLink, or
// ErrChainHashMismatch is returned and the local chain is unchanged.
func (l *Ledger) ReplaceChain(candidate []Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(candidate) <= len(l.chain) {
		return ErrChainNotLonger
	}
	if len(candidate) == 0 || candidate[0].PreviousHash != ZeroHash {
		return ErrChainBrokenLink
	}
	prevHash := ZeroHash
	for i := range candidate {
		b := candidate[i]
		if b.PreviousHash != prevHash {
			return ErrChainBrokenLink
		}
		if b.Hash != b.ComputeHash() {
			return ErrChainHashMismatch
		}
		prevHash = b.Hash
	}

	l.chain = append([]Block(nil), candidate...)
	l.mempool = nil
	l.logger.Infof("ledger: replaced chain with longer candidate (height %d)", len(candidate)-1)
	return nil
}

// ApplyPeerBlock applies a peer-delivered block only if it strictly
// extends the local tip: its index must be tip.Index+1, its previous_hash
// must equal the tip's hash, and its own hash must recompute correctly.
// Returns ErrBlockNonExtending or ErrChainHashMismatch on rejection without
// mutating the ledger.
func (l *Ledger) ApplyPeerBlock(block Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tip := l.chain[len(l.chain)-1]
	if block.Index != tip.Index+1 || block.PreviousHash != tip.Hash {
		return ErrBlockNonExtending
	}
	if block.Hash != block.ComputeHash() {
		return ErrChainHashMismatch
	}
	l.applyBlockLocked(block)
	return nil
}

// GetChain returns a snapshot copy of the current chain.
func (l *Ledger) GetChain() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Block, len(l.chain))
	copy(out, l.chain)
	return out
}

// ChainLen returns the current chain length without copying the chain.
func (l *Ledger) ChainLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// GetBalance returns addr's balance, or 0 if unknown.
func (l *Ledger) GetBalance(addr Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}
