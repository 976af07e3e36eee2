// Command caciad runs a single Cacia node: the ledger state machine, the
// stake-weighted block producer, the peer gossip listener, and the HTTP
// submission endpoint, all sharing one in-memory ledger.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Crypto1-dev/CaciaCC/apiserver/config"
	"github.com/Crypto1-dev/CaciaCC/apiserver/controllers"
	"github.com/Crypto1-dev/CaciaCC/apiserver/routes"
	"github.com/Crypto1-dev/CaciaCC/apiserver/services"
	"github.com/Crypto1-dev/CaciaCC/core"
	"github.com/Crypto1-dev/CaciaCC/internal/envutil"
	"github.com/Crypto1-dev/CaciaCC/network"
)

func main() {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	launchMode := envutil.EnvOrDefault("LAUNCH_MODE", "testnet")
	nodeAddr := envutil.EnvOrDefault("NODE_ADDR", "127.0.0.1:7878")
	peers := splitPeers(envutil.EnvOrDefault("NODE_PEERS", "127.0.0.1:7879,127.0.0.1:7880"))
	totalSupply := envutil.EnvOrDefaultUint64("TOTAL_SUPPLY", core.GenesisTreasurySupply)
	blockTime := envutil.EnvOrDefaultInt("BLOCK_TIME", 5)

	logger.Infof("caciad: starting in %s mode, node_addr=%s, peers=%v", launchMode, nodeAddr, peers)

	ledger := seedDemoLedger(totalSupply, logger)

	node := network.NewNode(network.Config{ListenAddr: nodeAddr, Peers: peers}, ledger, logger)
	producer := core.NewProducer(ledger, time.Duration(blockTime)*time.Second, node.BroadcastBlock, logger)

	apiCfg := config.Load()
	svc := services.NewLedgerService(ledger, node.BroadcastTx)
	ctrl := controllers.NewLedgerController(svc)
	router := mux.NewRouter()
	routes.Register(router, ctrl)
	httpServer := &http.Server{Addr: apiCfg.Addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := node.Run(); err != nil {
			if ctx.Err() == nil {
				logger.Fatalf("caciad: peer listener failed: %v", err)
			}
			logger.Warnf("caciad: peer listener stopped: %v", err)
		}
	}()
	go producer.Run(ctx)
	go func() {
		logger.Infof("caciad: submission endpoint listening on %s", apiCfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("caciad: submission endpoint failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("caciad: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = node.Close()
}

// seedDemoLedger mirrors original_source/src/lat.rs's demonstration seed: one
// validator stake and two funded accounts, under the same names. Only the
// treasury supply is configurable; the stake and account balances are fixed.
// It is a convenience default, not a protocol rule.
func seedDemoLedger(totalSupply uint64, logger *logrus.Logger) *core.Ledger {
	stakes := map[core.Address]uint64{
		"validator1": 100_000_000_000,
	}
	ledger := core.NewLedger(totalSupply, stakes, logger)
	ledger.Credit("user1", 100_000_000_000)
	ledger.Credit("user2", 10_000_000_000)
	return ledger
}

func splitPeers(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
