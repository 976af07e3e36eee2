package core

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel) // keep test output quiet
	return l
}

// makeAccount returns a fresh Ed25519 address and its private key.
func makeAccount(t *testing.T) (Address, ed25519.PrivateKey) {
	t.Helper()
	_, priv, addr, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return addr, priv
}

func makeTx(sender Address, priv ed25519.PrivateKey, receiver Address, amount, fee, nonce uint64) Transaction {
	tx := Transaction{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Fee:       fee,
		Nonce:     nonce,
		Timestamp: 1700000000,
		PublicKey: string(sender),
	}
	tx.Sign(priv)
	return tx
}

// TestHappyTransfer is scenario S1 from SPEC_FULL.md §8.
func TestHappyTransfer(t *testing.T) {
	a, aPriv := makeAccount(t)
	b, _ := makeAccount(t)
	v, _ := makeAccount(t)

	l := NewLedger(0, map[Address]uint64{v: 1}, testLogger())
	l.Credit(a, 1000)

	tx := makeTx(a, aPriv, b, 100, 5, 0)
	if err := l.AddTransaction(tx); err != nil {
		t.Fatalf("expected tx accepted, got %v", err)
	}

	blk, ok := l.CreateBlock()
	if !ok {
		t.Fatal("expected a block to be produced")
	}
	l.ApplyBlock(blk)

	if got := l.ChainLen(); got != 2 {
		t.Fatalf("chain length = %d, want 2", got)
	}
	if blk.Validator != v {
		t.Fatalf("validator = %s, want %s", blk.Validator, v)
	}
	if got := l.GetBalance(a); got != 895 {
		t.Fatalf("balance(a) = %d, want 895", got)
	}
	if got := l.GetBalance(b); got != 100 {
		t.Fatalf("balance(b) = %d, want 100", got)
	}
	if got := l.GetBalance(v); got != 5 {
		t.Fatalf("balance(v) = %d, want 5", got)
	}
	if !l.ValidateChain() {
		t.Fatal("expected chain to validate after apply")
	}
}

// TestReplayRejection is scenario S2.
func TestReplayRejection(t *testing.T) {
	a, aPriv := makeAccount(t)
	b, _ := makeAccount(t)
	v, _ := makeAccount(t)

	l := NewLedger(0, map[Address]uint64{v: 1}, testLogger())
	l.Credit(a, 1000)

	tx := makeTx(a, aPriv, b, 100, 5, 0)
	if err := l.AddTransaction(tx); err != nil {
		t.Fatalf("expected first submission accepted, got %v", err)
	}
	blk, _ := l.CreateBlock()
	l.ApplyBlock(blk)

	balanceBefore := l.GetBalance(a)
	chainLenBefore := l.ChainLen()

	err := l.AddTransaction(tx)
	var badNonce *BadNonceError
	if !errors.As(err, &badNonce) {
		t.Fatalf("expected *BadNonceError, got %v", err)
	}
	if badNonce.Expected != 1 || badNonce.Got != 0 {
		t.Fatalf("got expected=%d got=%d, want expected=1 got=0", badNonce.Expected, badNonce.Got)
	}
	if l.GetBalance(a) != balanceBefore {
		t.Fatal("balance must not change on rejected replay")
	}
	if l.ChainLen() != chainLenBefore {
		t.Fatal("chain must not change on rejected replay")
	}
}

// TestInsufficientFunds is scenario S3.
func TestInsufficientFunds(t *testing.T) {
	a, aPriv := makeAccount(t)
	b, _ := makeAccount(t)
	v, _ := makeAccount(t)

	l := NewLedger(0, map[Address]uint64{v: 1}, testLogger())
	l.Credit(a, 10)

	tx := makeTx(a, aPriv, b, 100, 5, 0)
	if err := l.AddTransaction(tx); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if _, ok := l.CreateBlock(); ok {
		t.Fatal("expected no block when mempool is empty")
	}
}

// TestForgedSender is scenario S4: T1 enforcement via the ledger path.
func TestForgedSender(t *testing.T) {
	_, kPriv, kAddr, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	_, _, kPrimeAddr, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	l := NewLedger(0, nil, testLogger())
	l.Credit(kPrimeAddr, 1000)

	tx := Transaction{
		Sender:    kPrimeAddr,
		Receiver:  "somewhere",
		Amount:    10,
		Fee:       1,
		Nonce:     0,
		Timestamp: 1700000000,
		PublicKey: string(kAddr),
	}
	tx.Sign(kPriv)

	if err := l.AddTransaction(tx); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for forged sender, got %v", err)
	}
}

// TestPeerChainAdoption is scenario S5.
func TestPeerChainAdoption(t *testing.T) {
	l := NewLedger(0, nil, testLogger())
	if l.ChainLen() != 1 {
		t.Fatalf("expected genesis-only chain, got length %d", l.ChainLen())
	}

	candidate := l.GetChain()
	for i := 0; i < 2; i++ {
		tip := candidate[len(candidate)-1]
		next := Block{
			Index:        tip.Index + 1,
			Timestamp:    int64(1700000000 + i),
			Transactions: []Transaction{},
			PreviousHash: tip.Hash,
			Validator:    GenesisValidator,
		}
		next.Hash = next.ComputeHash()
		candidate = append(candidate, next)
	}

	if err := l.ReplaceChain(candidate); err != nil {
		t.Fatalf("expected candidate chain to be adopted, got %v", err)
	}
	if l.ChainLen() != 3 {
		t.Fatalf("chain length = %d, want 3", l.ChainLen())
	}
}

func TestReplaceChainRejectsShorterOrInvalid(t *testing.T) {
	l := NewLedger(0, nil, testLogger())
	candidate := l.GetChain() // same length, not longer
	if err := l.ReplaceChain(candidate); !errors.Is(err, ErrChainNotLonger) {
		t.Fatalf("expected ErrChainNotLonger, got %v", err)
	}

	longerButBroken := append(l.GetChain(), Block{
		Index:        1,
		PreviousHash: "not-the-real-tip-hash-000000000000000000000000000000000000000",
		Hash:         "irrelevant",
	})
	if err := l.ReplaceChain(longerButBroken); err == nil {
		t.Fatal("expected rejection of chain with broken hash link")
	}
}

// TestNonExtendingBlock is scenario S6.
func TestNonExtendingBlock(t *testing.T) {
	l := NewLedger(0, nil, testLogger())
	// Grow the local chain to height 5.
	for i := 0; i < 5; i++ {
		chain := l.GetChain()
		tip := chain[len(chain)-1]
		next := Block{
			Index:        tip.Index + 1,
			Timestamp:    int64(1700000000 + i),
			Transactions: []Transaction{},
			PreviousHash: tip.Hash,
			Validator:    GenesisValidator,
		}
		next.Hash = next.ComputeHash()
		l.ApplyBlock(next)
	}
	if l.ChainLen() != 6 {
		t.Fatalf("expected chain length 6 (genesis+5), got %d", l.ChainLen())
	}
	tip := l.GetChain()[5]

	cases := []struct {
		name  string
		index uint64
		prev  string
	}{
		{"equal index", tip.Index, tip.Hash},
		{"skip index", tip.Index + 2, tip.Hash},
		{"wrong prev hash", tip.Index + 1, "0000000000000000000000000000000000000000000000000000000000000000"[:64]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blk := Block{Index: tc.index, PreviousHash: tc.prev, Transactions: []Transaction{}}
			blk.Hash = blk.ComputeHash()
			if err := l.ApplyPeerBlock(blk); !errors.Is(err, ErrBlockNonExtending) {
				t.Fatalf("expected ErrBlockNonExtending, got %v", err)
			}
			if l.ChainLen() != 6 {
				t.Fatalf("chain length changed: %d", l.ChainLen())
			}
		})
	}
}

// TestApplyBlockSkipsDrainedSender covers invariant L4: a transaction
// admitted to the mempool may still be skipped at apply time if an earlier
// transaction in the same block already drained the sender, and the nonce
// increment from admission is not rolled back.
func TestApplyBlockSkipsDrainedSender(t *testing.T) {
	a, aPriv := makeAccount(t)
	b, _ := makeAccount(t)
	v, _ := makeAccount(t)

	l := NewLedger(0, map[Address]uint64{v: 1}, testLogger())
	l.Credit(a, 100)

	tx1 := makeTx(a, aPriv, b, 90, 5, 0) // drains a to 5
	tx2 := makeTx(a, aPriv, b, 50, 5, 1) // will be admitted (nonce 1 is next) but unaffordable at apply

	if err := l.AddTransaction(tx1); err != nil {
		t.Fatalf("tx1 rejected: %v", err)
	}
	if err := l.AddTransaction(tx2); err != nil {
		t.Fatalf("tx2 rejected: %v", err)
	}

	blk, ok := l.CreateBlock()
	if !ok {
		t.Fatal("expected block")
	}
	l.ApplyBlock(blk)

	if got := l.GetBalance(a); got != 5 {
		t.Fatalf("balance(a) = %d, want 5 (only tx1 applied)", got)
	}
	if got := l.GetBalance(b); got != 90 {
		t.Fatalf("balance(b) = %d, want 90", got)
	}
	// tx2's fee must not have been collected since it was skipped.
	if got := l.GetBalance(v); got != 5 {
		t.Fatalf("balance(v) = %d, want 5 (tx2 fee not collected)", got)
	}

	// Nonce is not rolled back: resubmitting with nonce=1 must be rejected
	// as a replay even though tx2 never actually applied.
	tx3 := makeTx(a, aPriv, b, 1, 0, 1)
	var bn *BadNonceError
	if err := l.AddTransaction(tx3); !errors.As(err, &bn) || bn.Expected != 2 {
		t.Fatalf("expected BadNonceError{Expected:2}, got %v", err)
	}
}

func TestConservationOfValue(t *testing.T) {
	// Testable property 3: sum of amount+fee debits equals sum of amount
	// credits plus fee credited to the validator, for non-skipped tx.
	a, aPriv := makeAccount(t)
	b, _ := makeAccount(t)
	v, _ := makeAccount(t)

	l := NewLedger(0, map[Address]uint64{v: 1}, testLogger())
	l.Credit(a, 1000)

	tx := makeTx(a, aPriv, b, 300, 7, 0)
	if err := l.AddTransaction(tx); err != nil {
		t.Fatalf("tx rejected: %v", err)
	}
	blk, _ := l.CreateBlock()
	l.ApplyBlock(blk)

	debited := uint64(1000) - l.GetBalance(a)
	credited := l.GetBalance(b) + (l.GetBalance(v))
	if debited != credited {
		t.Fatalf("conservation violated: debited=%d credited=%d", debited, credited)
	}
}
