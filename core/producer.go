package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// BroadcastFunc hands a freshly applied block to the peer layer for
// propagation. Implemented by network.Node.BroadcastBlock; kept as a
// function type here so core never imports network (SPEC_FULL.md §4.4).
type BroadcastFunc func(Block) error

// Producer periodically asks the ledger to assemble and apply a block, then
// hands it off for broadcast.
type Producer struct {
	ledger    *Ledger
	broadcast BroadcastFunc
	period    time.Duration
	logger    *logrus.Logger
}

// NewProducer constructs a Producer with the given block period. broadcast
// may be nil, in which case produced blocks are applied but never
// propagated (useful in tests).
func NewProducer(ledger *Ledger, period time.Duration, broadcast BroadcastFunc, logger *logrus.Logger) *Producer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Producer{ledger: ledger, broadcast: broadcast, period: period, logger: logger}
}

// Run blocks until ctx is canceled, producing and applying a block on every
// tick when the mempool is non-empty. Broadcast errors are logged and
// swallowed; they never stop the loop (SPEC_FULL.md §4.4).
func (p *Producer) Run(ctx context.Context) {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("producer: stopping")
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Producer) tick() {
	p.ledger.mu.Lock()
	blk, ok := p.ledger.createBlockLocked()
	if ok {
		p.ledger.applyBlockLocked(blk)
	}
	p.ledger.mu.Unlock()

	if !ok {
		return
	}
	p.logger.Infof("producer: produced block %d by %s (%d tx)", blk.Index, blk.Validator, len(blk.Transactions))
	if p.broadcast == nil {
		return
	}
	if err := p.broadcast(blk); err != nil {
		p.logger.Warnf("producer: broadcast of block %d failed: %v", blk.Index, err)
	}
}
