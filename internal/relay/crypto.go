package relay

import (
	"fmt"

	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
)

// Self-encryption: the NIP-04 conversation key of a key with its own public
// key. Only the same private key can ever derive it, relay operators see
// ciphertext.

func selfSecret(privKey string) ([]byte, error) {
	pubKey, err := nostr.GetPublicKey(privKey)
	if err != nil {
		return nil, err
	}
	return nip04.ComputeSharedSecret(pubKey, privKey)
}

func SelfEncrypt(privKey string, plaintext []byte) (string, error) {
	secret, err := selfSecret(privKey)
	if err != nil {
		return "", err
	}
	return nip04.Encrypt(string(plaintext), secret)
}

// SelfDecrypt fails closed with ErrDecryptionFailed on a corrupt record or
// one written by a different key.
func SelfDecrypt(privKey string, ciphertext string) ([]byte, error) {
	secret, err := selfSecret(privKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecryptionFailed, err)
	}
	plaintext, err := nip04.Decrypt(ciphertext, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecryptionFailed, err)
	}
	return []byte(plaintext), nil
}
