package core

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Address is the opaque account identifier used throughout the ledger: the
// lowercase hex encoding of an Ed25519 public key, or one of the sentinel
// labels treasury, genesis_validator, default_validator.
type Address string

const (
	Treasury         Address = "treasury"
	GenesisValidator Address = "genesis_validator"
	DefaultValidator Address = "default_validator"
)

// Transaction is a signed value transfer. JSON field order matches
// SPEC_FULL.md §6: sender, receiver, amount, fee, nonce, signature,
// timestamp, public_key.
type Transaction struct {
	Sender    Address `json:"sender"`
	Receiver  Address `json:"receiver"`
	Amount    uint64  `json:"amount"`
	Fee       uint64  `json:"fee"`
	Nonce     uint64  `json:"nonce"`
	Signature string  `json:"signature"`
	Timestamp int64   `json:"timestamp"`
	PublicKey string  `json:"public_key"`
}

// Digest returns the canonical SHA-256 digest this transaction's signature
// is computed over: the UTF-8 concatenation of sender, receiver, amount,
// fee, nonce, timestamp (decimal, no separators).
func (tx *Transaction) Digest() [32]byte {
	buf := fmt.Sprintf("%s%s%d%d%d%d", tx.Sender, tx.Receiver, tx.Amount, tx.Fee, tx.Nonce, tx.Timestamp)
	return sha256.Sum256([]byte(buf))
}

// VerifySignature reports whether this transaction is validly signed.
// It enforces invariant T1 (sender must equal hex(public_key)) in addition
// to invariant T2 (the Ed25519 signature over Digest() must verify) — the
// reference source checks only T2; SPEC_FULL.md requires both. Any
// malformed public key or signature hex yields false, never an error.
func (tx *Transaction) VerifySignature() bool {
	pub, sig, ok := decodeSignature(tx.PublicKey, tx.Signature)
	if !ok {
		return false
	}
	if hex.EncodeToString(pub) != string(tx.Sender) {
		return false
	}
	digest := tx.Digest()
	return ed25519.Verify(pub, digest[:], sig)
}

// Sign populates Signature by signing Digest() with priv. Not part of the
// consensus path; used by tests and by callers constructing a transaction
// on behalf of an external wallet.
func (tx *Transaction) Sign(priv ed25519.PrivateKey) {
	digest := tx.Digest()
	tx.Signature = hex.EncodeToString(ed25519.Sign(priv, digest[:]))
}
