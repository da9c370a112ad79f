package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gagliardetto/solana-go"
)

// Config captures the daemon configuration loaded from a TOML file.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	ProgramID      string `toml:"ProgramID"`
	Environment    string `toml:"Environment"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		ListenAddress:  ":8545",
		MetricsAddress: ":9090",
		DataDir:        "./treasury-data",
		ProgramID:      "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS",
		Environment:    "dev",
	}
}

// Load reads the configuration file at path, falling back to defaults for
// absent fields. A missing file yields the default configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first configuration problem encountered.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if _, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.ProgramID)); err != nil {
		return fmt.Errorf("config: invalid ProgramID: %w", err)
	}
	return nil
}

// Program returns the parsed program identity. Validate must succeed first.
func (c Config) Program() solana.PublicKey {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.ProgramID))
	if err != nil {
		return solana.PublicKey{}
	}
	return key
}
