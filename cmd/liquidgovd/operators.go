package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"liquidgov/native/attestation"
)

// operatorSeed is one entry in the genesis operator registry file: the
// initial M-of-N signer set a fresh deployment starts with, before an
// administrator registers or deregisters operators at runtime.
type operatorSeed struct {
	ID        string `yaml:"id"`
	PublicKey string `yaml:"publicKey"`
}

// loadOperatorSeeds reads a free-form YAML list of operator id/pubkey pairs.
// A missing file is not an error: a deployment may register its operators
// entirely through the admin surface instead.
func loadOperatorSeeds(path string) ([]operatorSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read operator seed file: %w", err)
	}
	var seeds []operatorSeed
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("parse operator seed file: %w", err)
	}
	return seeds, nil
}

// bootstrapOperators registers every seed not already present, so restarting
// against an existing data directory is a no-op rather than an error.
func bootstrapOperators(verifier *attestation.Verifier, seeds []operatorSeed) error {
	for _, seed := range seeds {
		pub, err := hex.DecodeString(seed.PublicKey)
		if err != nil {
			return fmt.Errorf("operator %q: decode public key: %w", seed.ID, err)
		}
		if err := verifier.RegisterOperator(seed.ID, pub); err != nil {
			if errors.Is(err, attestation.ErrOperatorExists) {
				continue
			}
			return fmt.Errorf("operator %q: %w", seed.ID, err)
		}
	}
	return nil
}
