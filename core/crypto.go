package core

import (
	"crypto/ed25519"
	"crypto/sha256"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
)

// Sha256Hex returns the lowercase hex encoding of the SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GenerateKeypair returns a new Ed25519 key pair, its hex-encoded public key
// (the Address form used throughout this package) and the raw private key.
// Not part of the node's consensus path — used by tests and by external
// wallet tooling to produce material this core only ever verifies.
func GenerateKeypair() (pub ed25519.PublicKey, priv ed25519.PrivateKey, addr Address, err error) {
	pub, priv, err = ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return nil, nil, "", fmt.Errorf("generate keypair: %w", err)
	}
	return pub, priv, Address(hex.EncodeToString(pub)), nil
}

// decodeSignature decodes a hex public key and signature, returning false on
// any malformed input rather than an error — callers treat decode failure
// identically to a failed verification.
func decodeSignature(pubKeyHex, sigHex string) (ed25519.PublicKey, []byte, bool) {
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, nil, false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, nil, false
	}
	return ed25519.PublicKey(pub), sig, true
}
