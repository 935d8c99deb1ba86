package boltstore

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"liquidgov/crypto"
)

type testKey struct {
	pub  []byte
	addr []byte
}

func newTestKey() (*testKey, error) {
	priv, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	pub := ethcrypto.FromECDSAPub(priv.PubKey().PublicKey)
	addr := ethcrypto.PubkeyToAddress(*priv.PubKey().PublicKey).Bytes()
	return &testKey{pub: pub, addr: addr}, nil
}
