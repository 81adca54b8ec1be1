package credstore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion = 1
	envelopePrefix  = "WABENC1\n"
	saltSize        = 16

	kdfTime     = 2
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 1
)

var (
	// ErrAuthFailed indicates the envelope failed authentication,
	// either a wrong passphrase or tampered ciphertext.
	ErrAuthFailed = errors.New("credstore: envelope authentication failed")

	// ErrInvalidEnvelope indicates the data is not a well-formed
	// envelope.
	ErrInvalidEnvelope = errors.New("credstore: invalid envelope")
)

type envelope struct {
	Version    uint32 `json:"version"`
	KDF        string `json:"kdf"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under a key derived from the passphrase and
// returns a self-describing envelope.
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	env := envelope{
		Version:    envelopeVersion,
		KDF:        "argon2id",
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(envelopePrefix), raw...), nil
}

// Open decrypts an envelope produced by Seal.
func Open(passphrase string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), envelopePrefix) {
		return nil, ErrInvalidEnvelope
	}
	var env envelope
	if err := json.Unmarshal(data[len(envelopePrefix):], &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Version != envelopeVersion || env.KDF != "argon2id" {
		return nil, ErrInvalidEnvelope
	}
	key := deriveKey(passphrase, env.Salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
