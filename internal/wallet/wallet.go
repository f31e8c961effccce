// Package wallet manages the keypair files the sniper trades from.
// Keypairs live on disk as JSON arrays of 64 bytes (ed25519 seed
// followed by the public key), the layout Solana tooling writes.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// keypairLen is seed (32) + public key (32).
const keypairLen = 64

// Wallet is a loaded keypair with its derived base58 address.
type Wallet struct {
	Name    string
	Address string

	priv ed25519.PrivateKey
}

// PublicKey returns the wallet's ed25519 public key.
func (w *Wallet) PublicKey() ed25519.PublicKey {
	return w.priv.Public().(ed25519.PublicKey)
}

// Sign signs a message with the wallet's private key.
func (w *Wallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.priv, message)
}

// Load reads a keypair file and validates it: correct length, public
// key consistent with the seed, and the point on-curve.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet %s: %w", path, err)
	}

	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse wallet %s: %w", path, err)
	}
	if len(raw) != keypairLen {
		return nil, fmt.Errorf("wallet %s: expected %d bytes, got %d", path, keypairLen, len(raw))
	}

	priv := ed25519.NewKeyFromSeed(raw[:32])
	pub := priv.Public().(ed25519.PublicKey)
	if !bytes.Equal(pub, raw[32:]) {
		return nil, fmt.Errorf("wallet %s: public key does not match seed", path)
	}
	if !isOnCurve(pub) {
		return nil, fmt.Errorf("wallet %s: public key not on curve", path)
	}

	name := filepath.Base(path)
	return &Wallet{
		Name:    name[:len(name)-len(filepath.Ext(name))],
		Address: base58.Encode(pub),
		priv:    priv,
	}, nil
}

// LoadAll loads every listed keypair file; one bad file fails the lot,
// since a misconfigured wallet set is a fatal startup condition.
func LoadAll(paths []string) ([]*Wallet, error) {
	wallets := make([]*Wallet, 0, len(paths))
	for _, p := range paths {
		w, err := Load(p)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// Create generates a new keypair and writes it to path. The file is a
// JSON array of 64 numbers, the layout solana-keygen reads; marshaling
// the key bytes directly would produce a base64 string instead.
func Create(path string) (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	numbers := make([]int, len(priv))
	for i, b := range priv {
		numbers[i] = int(b)
	}
	data, err := json.Marshal(numbers)
	if err != nil {
		return nil, fmt.Errorf("marshal keypair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create wallet dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write wallet %s: %w", path, err)
	}

	name := filepath.Base(path)
	return &Wallet{
		Name:    name[:len(name)-len(filepath.Ext(name))],
		Address: base58.Encode(pub),
		priv:    priv,
	}, nil
}

// isOnCurve checks if the public key is a valid ed25519 curve point.
func isOnCurve(pub []byte) bool {
	if len(pub) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pub)
	return err == nil
}
