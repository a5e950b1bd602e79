// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package config holds the network and node configuration.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/tally/tally"
)

// Network are the chain parameters every node of a network shares.
type Network struct {
	// ImportanceGrouping is how far back the effective balance of a signer is taken.
	ImportanceGrouping uint64 `yaml:"importanceGrouping"`
	// MaxRollbackBlocks is the number of recent blocks that may be rolled back.
	MaxRollbackBlocks uint64 `yaml:"maxRollbackBlocks"`

	TrackedAssetID   tally.AssetID `yaml:"trackedAssetId"`
	OptimizedAssetID tally.AssetID `yaml:"optimizedAssetId"`
	FeeAssetID       tally.AssetID `yaml:"feeAssetId"`

	MaxDifficultyBlocks  uint64 `yaml:"maxDifficultyBlocks"`
	HashRetentionSeconds uint64 `yaml:"hashRetentionSeconds"`
	BlockTargetSeconds   uint64 `yaml:"blockTargetSeconds"`
}

// Node are the options of the local node.
type Node struct {
	DataDir string `yaml:"dataDir"`

	VerifiableState    bool `yaml:"verifiableState"`
	VerifiableReceipts bool `yaml:"verifiableReceipts"`
	VerifySignatures   bool `yaml:"verifySignatures"`

	UseCacheDatabaseStorage bool   `yaml:"useCacheDatabaseStorage"`
	MaxBlocksPerBatch       uint32 `yaml:"maxBlocksPerBatch"`

	BlockCacheSize int `yaml:"blockCacheSize"`
	DBCacheSizeMB  int `yaml:"dbCacheSizeMB"`
	DBOpenFiles    int `yaml:"dbOpenFiles"`
}

// Config is the full configuration.
type Config struct {
	Network Network `yaml:"network"`
	Node    Node    `yaml:"node"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Network: Network{
			ImportanceGrouping:   359,
			MaxRollbackBlocks:    360,
			TrackedAssetID:       0x0DC67FBE1CAD29E3,
			OptimizedAssetID:     0x0DC67FBE1CAD29E3,
			FeeAssetID:           0x0DC67FBE1CAD29E3,
			MaxDifficultyBlocks:  60,
			HashRetentionSeconds: 24 * 60 * 60,
			BlockTargetSeconds:   15,
		},
		Node: Node{
			DataDir:            "data",
			VerifiableState:    true,
			VerifiableReceipts: true,
			VerifySignatures:   true,
			MaxBlocksPerBatch:  400,
			BlockCacheSize:     512,
			DBCacheSizeMB:      128,
			DBOpenFiles:        256,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	n := c.Network
	switch {
	case n.ImportanceGrouping == 0:
		return errors.New("network.importanceGrouping must be positive")
	case n.MaxRollbackBlocks == 0:
		return errors.New("network.maxRollbackBlocks must be positive")
	case n.MaxDifficultyBlocks == 0:
		return errors.New("network.maxDifficultyBlocks must be positive")
	case n.BlockTargetSeconds == 0:
		return errors.New("network.blockTargetSeconds must be positive")
	case n.ImportanceGrouping > n.MaxRollbackBlocks:
		return errors.Errorf("network.importanceGrouping %d exceeds maxRollbackBlocks %d", n.ImportanceGrouping, n.MaxRollbackBlocks)
	}
	if c.Node.DataDir == "" {
		return errors.New("node.dataDir must be set")
	}
	if c.Node.MaxBlocksPerBatch == 0 {
		return errors.New("node.maxBlocksPerBatch must be positive")
	}
	if c.Node.BlockCacheSize < 0 || c.Node.DBCacheSizeMB < 0 || c.Node.DBOpenFiles < 0 {
		return errors.New("node cache sizes must not be negative")
	}
	return nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
