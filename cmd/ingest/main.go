// Command ingest loads the product catalog into the vector index.
//
// Usage:
//
//	ingest [--config configs/stylist.json] [--provider OLLAMA|GEMINI]
//	ingest runs
//	ingest seed --file products.json
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/nidhogg/boutique-stylist/cmd/ingest/commands"
)

func main() {
	_ = godotenv.Load()
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
