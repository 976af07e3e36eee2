// Package network implements the node's peer gossip layer: a static list of
// TCP peers, a listener accepting one connection per incoming message, and
// broadcast-and-forget propagation of newly produced blocks and submitted
// transactions.
package network

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Crypto1-dev/CaciaCC/core"
)

// Config holds a node's bind address and its static peer list. No dynamic
// discovery; unchanged from spec.md §4.5.
type Config struct {
	ListenAddr string
	Peers      []string
}

// dialer manages outbound peer connections, mirroring the teacher's
// core.Dialer: a timeout and keepalive pair wrapping net.Dialer.DialContext.
type dialer struct {
	timeout   time.Duration
	keepAlive time.Duration
}

func (d *dialer) dial(ctx context.Context, address string) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.timeout, KeepAlive: d.keepAlive}
	conn, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("network: dial %s: %w", address, err)
	}
	return conn, nil
}

// Node wraps a TCP listener, a dialer for outbound peer connections, and a
// reference to the shared ledger every handler dispatches into.
type Node struct {
	cfg    Config
	ledger *core.Ledger
	logger *logrus.Logger
	dialer *dialer

	listener net.Listener
}

// NewNode constructs a Node bound to cfg.ListenAddr. It does not start
// listening or dial peers; call Run for that.
func NewNode(cfg Config, ledger *core.Ledger, logger *logrus.Logger) *Node {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Node{
		cfg:    cfg,
		ledger: ledger,
		logger: logger,
		dialer: &dialer{timeout: 5 * time.Second, keepAlive: 30 * time.Second},
	}
}

// Run binds the listener, seeds every configured peer with the current chain
// snapshot, then enters the accept loop, spawning one handler per accepted
// connection. Run blocks until the listener is closed.
func (n *Node) Run() error {
	l, err := net.Listen("tcp", n.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("network: bind %s: %w", n.cfg.ListenAddr, err)
	}
	n.listener = l
	n.logger.Infof("network: listening on %s", n.cfg.ListenAddr)

	n.seedPeers()

	for {
		conn, err := l.Accept()
		if err != nil {
			return fmt.Errorf("network: accept: %w", err)
		}
		go n.handleConn(conn)
	}
}

// Close stops the listener, causing Run to return.
func (n *Node) Close() error {
	if n.listener == nil {
		return nil
	}
	return n.listener.Close()
}

// seedPeers dials every configured peer once at startup and sends the
// current chain snapshot, so a newly joining node catches up on connect.
func (n *Node) seedPeers() {
	chain := n.ledger.GetChain()
	for _, addr := range n.cfg.Peers {
		if err := n.sendDocument(addr, chain); err != nil {
			n.logger.Warnf("network: seed dial to %s failed: %v", addr, err)
			continue
		}
		n.logger.Infof("network: seeded %s with chain snapshot (height %d)", addr, len(chain)-1)
	}
}

// handleConn reads one newline-delimited JSON document from conn, classifies
// it as a chain, a block, or a transaction (in that order), dispatches it
// into the ledger, and writes back the advisory ACK. Framing is
// newline-delimited JSON via bufio.Reader + json.Decoder rather than a
// single bounded read, so an arbitrarily large chain snapshot is never
// truncated.
func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(bufio.NewReader(conn))

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		n.logger.Warnf("network: dropping message from %s: %v", conn.RemoteAddr(), err)
		return
	}

	var chain []core.Block
	if err := json.Unmarshal(raw, &chain); err == nil {
		n.dispatchChain(chain, conn.RemoteAddr().String())
		n.ack(conn)
		return
	}

	var block core.Block
	if err := json.Unmarshal(raw, &block); err == nil && block.Hash != "" {
		n.dispatchBlock(block, conn.RemoteAddr().String())
		n.ack(conn)
		return
	}

	var tx core.Transaction
	if err := json.Unmarshal(raw, &tx); err == nil && tx.Signature != "" {
		n.dispatchTx(tx, conn.RemoteAddr().String())
		n.ack(conn)
		return
	}

	n.logger.Warnf("network: dropping unrecognized message from %s", conn.RemoteAddr())
}

func (n *Node) dispatchChain(chain []core.Block, from string) {
	if len(chain) <= n.ledger.ChainLen() {
		return
	}
	if err := n.ledger.ReplaceChain(chain); err != nil {
		n.logger.Warnf("network: rejected chain from %s: %v", from, err)
		return
	}
	n.logger.Infof("network: adopted longer chain from %s (height %d)", from, len(chain)-1)
}

func (n *Node) dispatchBlock(block core.Block, from string) {
	if err := n.ledger.ApplyPeerBlock(block); err != nil {
		n.logger.Warnf("network: rejected block %d from %s: %v", block.Index, from, err)
		return
	}
	n.logger.Infof("network: applied block %d from %s", block.Index, from)
}

func (n *Node) dispatchTx(tx core.Transaction, from string) {
	if err := n.ledger.AddTransaction(tx); err != nil {
		n.logger.Warnf("network: rejected tx from %s via %s: %v", tx.Sender, from, err)
		return
	}
	n.logger.Infof("network: admitted tx from %s via %s", tx.Sender, from)
}

func (n *Node) ack(conn net.Conn) {
	_, _ = conn.Write([]byte("ACK"))
}

// BroadcastBlock opens a fresh outbound connection to every configured peer,
// sends block as a newline-terminated JSON document, and closes. Per-peer
// failures are logged and do not abort the broadcast to other peers.
func (n *Node) BroadcastBlock(block core.Block) error {
	n.broadcast(block, "block")
	return nil
}

// BroadcastTx broadcasts tx to every configured peer the same way
// BroadcastBlock does.
func (n *Node) BroadcastTx(tx core.Transaction) error {
	n.broadcast(tx, "transaction")
	return nil
}

func (n *Node) broadcast(doc any, kind string) {
	for _, addr := range n.cfg.Peers {
		if err := n.sendDocument(addr, doc); err != nil {
			n.logger.Warnf("network: broadcast %s to %s failed: %v", kind, addr, err)
			continue
		}
	}
}

func (n *Node) sendDocument(addr string, doc any) error {
	conn, err := n.dialer.dial(context.Background(), addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := conn.Write(b); err != nil {
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	ack := make([]byte, 3)
	_, _ = conn.Read(ack) // ACK is advisory; errors here are not fatal
	return nil
}
