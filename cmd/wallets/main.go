// Command wallets generates keypair files for the sniper.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"solana-pool-sniper/internal/wallet"
)

func main() {
	count := flag.Int("count", 1, "Number of wallets to create")
	dir := flag.String("dir", "wallets", "Directory to write keypair files into")
	flag.Parse()

	logger := log.New(os.Stdout, "[wallets] ", log.LstdFlags)

	if *count < 1 {
		logger.Fatalf("--count must be at least 1, got %d", *count)
	}

	for i := 1; i <= *count; i++ {
		path := filepath.Join(*dir, fmt.Sprintf("wallet%d.json", i))
		if _, err := os.Stat(path); err == nil {
			logger.Printf("Skipping %s: already exists", path)
			continue
		}
		w, err := wallet.Create(path)
		if err != nil {
			logger.Fatalf("Failed to create %s: %v", path, err)
		}
		logger.Printf("Created %s (address %s)", path, w.Address)
	}

	logger.Printf("Done. Fund the addresses before enabling AUTO_SNIPE.")
}
