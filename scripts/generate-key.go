// Package main is a development utility that generates the two deployment secrets the
// server needs: ENCRYPTION_KEY (64 hex characters, used directly as the AES-256 key that
// protects stored Discord tokens) and HACKATHON_JWT_SECRET (session token signing key).
// It prints them in .env format so the output can be appended to a local .env file.
//
//	go run ./scripts/generate-key.go >> .env
package main

import (
	"fmt"
	"log"

	"github.com/sundai/hackathon-api/internal/auth"
	"github.com/sundai/hackathon-api/internal/crypto"
)

func main() {
	encryptionKey, err := crypto.GenerateKeyHex()
	if err != nil {
		log.Fatal(err)
	}
	jwtSecret, err := crypto.GenerateKeyHex()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("# Generated deployment secrets. Keep these out of version control.")
	fmt.Printf("ENCRYPTION_KEY=%s\n", encryptionKey)
	fmt.Printf("%s=%s\n", auth.JWTSecretEnv, jwtSecret)
}
