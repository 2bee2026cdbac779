// Package common provides shared utilities for the PSI batch service
// binaries: key loading and generation, YAML configuration files, and
// state store construction.
package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
	"github.com/AngelaRollins9561294/psiFHE-Tool/services"
)

// FileConfig is the YAML configuration accepted by the gateway binary via
// the --config flag. Command-line flags override file values.
type FileConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	EnablePprof bool   `yaml:"enable_pprof"`

	// Owner is the hex-encoded address installed as the deployment owner
	// on first start. Ignored when a persisted snapshot exists.
	Owner string `yaml:"owner"`

	// OracleSecret is the hex-encoded master secret of the in-process
	// decryption oracle. Generated when empty.
	OracleSecret string `yaml:"oracle_secret"`

	Protocol protocol.Config          `yaml:"protocol"`
	Postgres *services.PostgresConfig `yaml:"postgres"`
}

// LoadFileConfig reads and parses a YAML configuration file. A missing
// path returns an empty config so flag defaults apply.
func LoadFileConfig(path string) (*FileConfig, error) {
	config := &FileConfig{}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// LoadOrGenerateMasterSecret loads a 32-byte oracle master secret from a
// hex string, or generates a fresh one if hexSecret is empty. A generated
// secret cannot unseal ciphertexts from earlier runs.
func LoadOrGenerateMasterSecret(hexSecret string) ([]byte, error) {
	if hexSecret != "" {
		secret, err := hex.DecodeString(hexSecret)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return secret, nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// OpenStateStore opens the PostgreSQL store named in the config, or an
// in-memory store when no postgres section is present.
func OpenStateStore(config *FileConfig) (services.StateStore, error) {
	if config.Postgres == nil {
		return services.NewInMemoryStore(), nil
	}
	return services.NewPostgresStore(config.Postgres)
}
