package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key is a secp256k1 account key.
type Key struct {
	Address common.Address
	PrivKey *ecdsa.PrivateKey
}

type keyFile struct {
	Address common.Address `json:"address"`
	PrivKey string         `json:"priv_key"`
}

func NewKey() (k *Key, err error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return
	}
	return keyFromECDSA(priv), nil
}

func keyFromECDSA(priv *ecdsa.PrivateKey) *Key {
	return &Key{
		Address: crypto.PubkeyToAddress(priv.PublicKey),
		PrivKey: priv,
	}
}

func HexToKey(s string) (*Key, error) {
	priv, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, err
	}
	return keyFromECDSA(priv), nil
}

func (k *Key) Save(file string) error {
	dat, err := json.MarshalIndent(keyFile{
		Address: k.Address,
		PrivKey: hex.EncodeToString(crypto.FromECDSA(k.PrivKey)),
	}, "", "  ")
	if err != nil {
		return err
	}
	err = cmtos.EnsureDir(filepath.Dir(file), 0o700)
	if err != nil {
		return err
	}
	return os.WriteFile(file, dat, 0o600)
}

func GenKeyFile(file string) (k *Key, err error) {
	k, err = NewKey()
	if err != nil {
		return
	}
	err = k.Save(file)
	return
}

func LoadKeyFile(file string) (k *Key, err error) {
	dat, err := os.ReadFile(file)
	if err != nil {
		return
	}
	var kf keyFile
	err = json.Unmarshal(dat, &kf)
	if err != nil {
		return nil, fmt.Errorf("error reading key from %v: %w", file, err)
	}
	k, err = HexToKey(kf.PrivKey)
	if err != nil {
		return nil, fmt.Errorf("error reading key from %v: %w", file, err)
	}
	if k.Address != kf.Address {
		return nil, fmt.Errorf("key file %v address %v does not match key", file, kf.Address.Hex())
	}
	return
}
