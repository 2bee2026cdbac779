// Command gateway runs the PSI batch coordination service.
//
// The gateway exposes the batch lifecycle (open, submit, close, request
// intersection) over signed HTTP envelopes, enforces owner and provider
// access control with per-address cooldowns, and finalizes decryption
// callbacks from the in-process oracle. State is persisted to PostgreSQL
// when configured, otherwise held in memory.
//
// # Usage
//
//	go run ./cmd/gateway --owner=<hex address> --cooldown=60
//	go run ./cmd/gateway --config=config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AngelaRollins9561294/psiFHE-Tool/api/httpserver"
	"github.com/AngelaRollins9561294/psiFHE-Tool/cmd/common"
	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
	"github.com/AngelaRollins9561294/psiFHE-Tool/oracle"
	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
	"github.com/AngelaRollins9561294/psiFHE-Tool/services"
)

func main() {
	var (
		configPath      = flag.String("config", "", "YAML configuration file")
		addr            = flag.String("addr", ":8090", "HTTP listen address")
		metricsAddr     = flag.String("metrics-addr", "", "Metrics listen address (disabled if empty)")
		ownerHex        = flag.String("owner", "", "Deployment owner address (hex)")
		cooldownSeconds = flag.Uint64("cooldown", 0, "Cooldown between gated actions, in seconds")
		identity        = flag.String("identity", "psifhe-gateway", "Deployment identity bound into state hashes")
		oracleSecretHex = flag.String("oracle-secret", "", "Oracle master secret (hex, generates if empty)")
		enablePprof     = flag.Bool("pprof", false, "Enable pprof debugging API")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	config, err := common.LoadFileConfig(*configPath)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	// Flags override file values.
	if *addr != ":8090" || config.ListenAddr == "" {
		config.ListenAddr = *addr
	}
	if *metricsAddr != "" {
		config.MetricsAddr = *metricsAddr
	}
	if *ownerHex != "" {
		config.Owner = *ownerHex
	}
	if *cooldownSeconds != 0 {
		config.Protocol.CooldownSeconds = *cooldownSeconds
	}
	if *identity != "psifhe-gateway" || config.Protocol.Identity == "" {
		config.Protocol.Identity = *identity
	}
	if *oracleSecretHex != "" {
		config.OracleSecret = *oracleSecretHex
	}
	if *enablePprof {
		config.EnablePprof = true
	}

	if config.Owner == "" {
		fmt.Println("Error: --owner is required")
		os.Exit(1)
	}
	owner, err := crypto.NewAddressFromString(config.Owner)
	if err != nil {
		fmt.Printf("Owner address error: %v\n", err)
		os.Exit(1)
	}

	masterSecret, err := common.LoadOrGenerateMasterSecret(config.OracleSecret)
	if err != nil {
		fmt.Printf("Oracle secret error: %v\n", err)
		os.Exit(1)
	}
	oracleSvc, err := oracle.New(masterSecret)
	if err != nil {
		fmt.Printf("Oracle error: %v\n", err)
		os.Exit(1)
	}

	store, err := common.OpenStateStore(config)
	if err != nil {
		fmt.Printf("State store error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	sink := protocol.FanoutSink{
		&protocol.SlogSink{Log: log},
		&services.StoreSink{OnError: func(err error) {
			log.Error("Appending event failed", "err", err)
		}, Store: store},
	}

	core := protocol.NewCore(&config.Protocol, owner, oracleSvc, sink)
	oracleSvc.SetCallbackHandler(core)

	snap, err := store.LoadSnapshot()
	if err != nil {
		fmt.Printf("Loading snapshot error: %v\n", err)
		os.Exit(1)
	}
	if snap != nil {
		if err := core.Restore(snap); err != nil {
			fmt.Printf("Restoring snapshot error: %v\n", err)
			os.Exit(1)
		}
		log.Info("Restored persisted state")
	}

	gateway := services.NewGateway(&services.GatewayConfig{Log: log}, core, store)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               config.ListenAddr,
		MetricsAddr:              config.MetricsAddr,
		EnablePprof:              config.EnablePprof,
		Log:                      log,
		DrainDuration:            10 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, gateway)
	if err != nil {
		fmt.Printf("Create server error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Gateway starting",
		"owner", owner.String(),
		"identity", config.Protocol.Identity,
		"cooldownSeconds", config.Protocol.CooldownSeconds,
	)
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gateway")
	srv.Shutdown()
}
