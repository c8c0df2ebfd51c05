package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// GenerateEd25519Key generates a fresh Ed25519 keypair. Keys are held in
// memory only; the service signs short-lived tokens and mints new keys on
// every start.
func GenerateEd25519Key() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("cryptox: generate ed25519 key: %w", err)
	}
	return pub, priv, nil
}
