package config

import (
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"

	"liquidgov/crypto"
)

// Config is liquidgovd's on-disk configuration, loaded once at startup.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	// OperatorKey is a hex-encoded private key, generated on first load and
	// persisted here; liquidgovd does not read it.
	OperatorKey string `toml:"OperatorKey"`

	DepthCap         int    `toml:"DepthCap"`
	AttestationM     int    `toml:"AttestationM"`
	MaxHeightLag     uint64 `toml:"MaxHeightLag"`
	DefaultPoolRate  string `toml:"DefaultPoolRate"`
	JWTSigningSecret string `toml:"JWTSigningSecret"`
	JWTIssuer        string `toml:"JWTIssuer"`

	OTelEndpoint string `toml:"OTelEndpoint"`
	OTelInsecure bool   `toml:"OTelInsecure"`
}

// Load loads the configuration from path, creating a default file if none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.OperatorKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.OperatorKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:    ":8080",
		DataDir:          "./liquidgov-data",
		Environment:      "development",
		OperatorKey:      hex.EncodeToString(key.Bytes()),
		DepthCap:         7,
		AttestationM:     3,
		MaxHeightLag:     100,
		DefaultPoolRate:  "0",
		JWTSigningSecret: "",
		JWTIssuer:        "liquidgovd",
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
