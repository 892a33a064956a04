package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
)

func main() {
	env := flag.String("env", "test", "Environment: test or live")
	flag.Parse()

	if *env != "test" && *env != "live" {
		fmt.Println("error: env must be 'test' or 'live'")
		os.Exit(1)
	}

	key, hash, prefix := generateAPIKey(*env)

	fmt.Println("-------------------------------------------------------")
	fmt.Println("API key generated")
	fmt.Println("-------------------------------------------------------")
	fmt.Printf("Environment:  %s\n", *env)
	fmt.Printf("\nAPI key (show ONLY ONCE):\n%s\n", key)
	fmt.Printf("\nHash (store in database):\n%s\n", hash)
	fmt.Printf("\nPrefix (for display):\n%s\n", prefix)
	fmt.Println("-------------------------------------------------------")
	fmt.Println("\nSave the API key now, it will not be shown again.")
	fmt.Println("\nTo insert into database:")
	fmt.Printf("INSERT INTO api_key (partner_id, key_hash, key_prefix, name, scopes)\n")
	fmt.Printf("VALUES ('PARTNER_ID', '%s', '%s', 'Key Name', ARRAY['read:journeys']);\n", hash, prefix)
	fmt.Println("-------------------------------------------------------")
}

// generateAPIKey mirrors internal/api.generateAPIKey; kept as a standalone
// copy here since this is a preflight CLI run before a partner row (and
// hence the http server importing internal/api) necessarily exists.
func generateAPIKey(env string) (key, hash, prefix string) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		panic(err)
	}
	randomStr := hex.EncodeToString(randomBytes)

	checksumBytes := sha256.Sum256([]byte(randomStr))
	checksum := hex.EncodeToString(checksumBytes[:2])

	key = fmt.Sprintf("tc_%s_%s_%s", env, randomStr, checksum)

	hashBytes := sha256.Sum256([]byte(key))
	hash = hex.EncodeToString(hashBytes[:])

	prefix = fmt.Sprintf("tc_%s_%s...", env, randomStr[:8])

	return
}
