package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ZeroHash is the 64-hex-char previous-hash of the genesis block.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Block links a batch of transactions to its predecessor by hash and
// records the stake-elected validator. JSON field order matches
// SPEC_FULL.md §6: index, timestamp, transactions, previous_hash, hash,
// validator.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
	Validator    Address       `json:"validator"`
}

// ComputeHash returns the hex-encoded SHA-256 over
// index‖timestamp‖canonical-JSON(transactions)‖previous_hash, as defined in
// SPEC_FULL.md §3. Transactions is always encoded with encoding/json using
// the struct's declared field order, which is stable under re-serialization
// (Go's encoding/json never reorders struct fields), satisfying the
// canonical-form requirement.
func (b *Block) ComputeHash() string {
	txJSON, err := json.Marshal(b.Transactions)
	if err != nil {
		// Transactions is a plain value slice; marshaling it cannot fail.
		panic(fmt.Sprintf("block: marshal transactions: %v", err))
	}
	if b.Transactions == nil {
		txJSON = []byte("[]")
	}
	buf := fmt.Sprintf("%d%d%s%s", b.Index, b.Timestamp, txJSON, b.PreviousHash)
	sum := sha256.Sum256([]byte(buf))
	return hex.EncodeToString(sum[:])
}
