package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

func main() {
	key := generateOperatorKey()

	fmt.Println("═══════════════════════════════════════════════════")
	fmt.Println("🔑 Operator Key Generated")
	fmt.Println("═══════════════════════════════════════════════════")
	fmt.Printf("\nOperator key (show ONLY ONCE):\n%s\n", key)
	fmt.Println("\nAdd it to the service environment:")
	fmt.Printf("API_AUTH_KEY=%s\n", key)
	fmt.Println("\nCallers send it as the X-API-Key header on POST /v1/runs.")
	fmt.Println("═══════════════════════════════════════════════════")
}

// generateOperatorKey returns a fresh random key for the run trigger endpoint.
func generateOperatorKey() string {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		panic(err)
	}
	return fmt.Sprintf("wt_%s", hex.EncodeToString(randomBytes))
}
