package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"solana-pool-sniper/internal/solana"
)

func TestCreateLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet1.json")

	created, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Name != "wallet1" {
		t.Errorf("Expected name wallet1, got %s", created.Name)
	}
	if created.Address == "" {
		t.Error("Expected non-empty address")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Address != created.Address {
		t.Errorf("Address mismatch: %s vs %s", loaded.Address, created.Address)
	}

	// Both sides must sign identically.
	msg := []byte("test message")
	if !ed25519.Verify(loaded.PublicKey(), msg, created.Sign(msg)) {
		t.Error("Signature from created wallet does not verify with loaded key")
	}
}

func TestCreate_WritesNumericJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet1.json")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	// Solana tooling expects a JSON array of numbers, never the base64
	// string form Go produces for raw byte slices.
	if len(data) == 0 || data[0] != '[' {
		t.Fatalf("Keypair file must be a JSON array, got: %.40s", data)
	}

	var numbers []int
	if err := json.Unmarshal(data, &numbers); err != nil {
		t.Fatalf("Keypair file is not an array of numbers: %v", err)
	}
	if len(numbers) != keypairLen {
		t.Fatalf("Expected %d elements, got %d", keypairLen, len(numbers))
	}
	for i, n := range numbers {
		if n < 0 || n > 255 {
			t.Fatalf("Element %d out of byte range: %d", i, n)
		}
	}

	// The stored seed and public key halves must reconstruct the wallet.
	raw := make([]byte, keypairLen)
	for i, n := range numbers {
		raw[i] = byte(n)
	}
	priv := ed25519.NewKeyFromSeed(raw[:32])
	pub := priv.Public().(ed25519.PublicKey)
	if !ed25519.Verify(pub, []byte("check"), w.Sign([]byte("check"))) {
		t.Error("File contents do not match the created wallet's key")
	}
}

func TestCreate_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secure.json")
	if _, err := Create(path); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}
}

func TestLoad_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.json")
	data, _ := json.Marshal(make([]byte, 40))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for truncated keypair")
	}
}

func TestLoad_MismatchedPublicKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the stored public key half.
	raw := append([]byte(nil), priv...)
	raw[40] ^= 0xFF

	path := filepath.Join(t.TempDir(), "corrupt.json")
	data, _ := json.Marshal(raw)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for mismatched public key")
	}
}

func TestLoad_NotJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for unparsable file")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadAll_OneBadFileFailsAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if _, err := Create(good); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("[]"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAll([]string{good, bad}); err == nil {
		t.Error("Expected LoadAll to fail with one bad file")
	}

	wallets, err := LoadAll([]string{good})
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(wallets) != 1 {
		t.Errorf("Expected 1 wallet, got %d", len(wallets))
	}
}

type stubRPC struct {
	balances map[string]uint64
}

func (s *stubRPC) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return nil, nil
}

func (s *stubRPC) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	return s.balances[pubkey], nil
}

func TestManagerBalance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet1.json")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}

	rpc := &stubRPC{balances: map[string]uint64{
		w.Address: 2 * LamportsPerSOL,
	}}
	m := NewManager(rpc, []*Wallet{w})

	balance, err := m.Balance(context.Background(), 0)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 2.0 {
		t.Errorf("Expected 2.0 SOL, got %f", balance)
	}

	if _, err := m.Balance(context.Background(), 5); err == nil {
		t.Error("Expected error for out-of-range index")
	}
}
