// Package cmd provides the CLI commands for the PSI batch services.
//
// # Commands
//
// gateway: Runs the batch coordination service. Exposes the signed HTTP
// API for batch lifecycle, provider submissions, intersection requests,
// and oracle callbacks.
//
//	go run ./cmd/gateway --owner=<hex address> --cooldown=60
//	go run ./cmd/gateway --config=config.yaml --metrics-addr=:9090
//
// # Configuration
//
// The gateway supports YAML configuration files via the --config flag.
// Command-line flags override config file values.
//
// Example config:
//
//	listen_addr: ":8090"
//	metrics_addr: ":9090"
//	owner: "b0b1..."
//	oracle_secret: ""
//	protocol:
//	  cooldown_seconds: 60
//	  identity: "psifhe-prod"
//	postgres:
//	  host: "localhost"
//	  port: 5432
//	  user: "psifhe"
//	  password: "psifhe"
//	  database: "psifhe"
//
// Omitting the postgres section keeps all state in memory, which is
// suitable for local development only.
package cmd
