package fieldcodec

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// AESCodec is an in-process AES-256-GCM codec. Ciphertexts are base64 of
// nonce||sealed bytes.
type AESCodec struct {
	aead cipher.AEAD
}

func NewAESCodec(key []byte) (*AESCodec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes codec: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes codec: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("aes codec: create GCM: %w", err)
	}

	return &AESCodec{aead: aead}, nil
}

func (c *AESCodec) Encrypt(_ context.Context, plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("encrypt field: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESCodec) Decrypt(_ context.Context, sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decrypt field: base64 decode: %w", err)
	}

	n := c.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("decrypt field: %w", ErrCiphertextTooShort)
	}

	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt field: %w", err)
	}
	return string(plain), nil
}
