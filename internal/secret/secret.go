// Package secret holds the symmetric cipher used to mask counterparty labels
// and the one-way digest used for member passwords.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// PasswordSeparator joins a member's salt and password before hashing.
const PasswordSeparator = "|||"

// Hash returns the hex SHA-256 digest of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashPassword returns the digest stored as a member's password metadata.
func HashPassword(salt, password string) string {
	return Hash(salt + PasswordSeparator + password)
}

// CheckPassword compares password against the stored digest in constant time.
func CheckPassword(salt, password, storedHash string) bool {
	got := HashPassword(salt, password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) == 1
}

// Cipher encrypts labels with AES-256-CBC under a key derived from a process secret.
// Output is hex(iv) || hex(ciphertext); the IV is random per call.
type Cipher struct {
	block cipher.Block
	rand  io.Reader
}

// NewCipher derives the key as SHA-256(secret). An empty secret is an error.
func NewCipher(secretKey string) (*Cipher, error) {
	if secretKey == "" {
		return nil, errors.New("NewCipher: empty secret key")
	}
	key := sha256.Sum256([]byte(secretKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("NewCipher: %w", err)
	}
	return &Cipher{block: block, rand: rand.Reader}, nil
}

// Encrypt returns the hex-encoded IV followed by the hex-encoded ciphertext.
func (c *Cipher) Encrypt(plain string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("Encrypt: read iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	const ivHexLen = aes.BlockSize * 2
	if len(encrypted) < ivHexLen+ivHexLen {
		return "", errors.New("Decrypt: input too short")
	}

	iv, err := hex.DecodeString(encrypted[:ivHexLen])
	if err != nil {
		return "", fmt.Errorf("Decrypt: decode iv: %w", err)
	}
	data, err := hex.DecodeString(encrypted[ivHexLen:])
	if err != nil {
		return "", fmt.Errorf("Decrypt: decode ciphertext: %w", err)
	}
	if len(data)%aes.BlockSize != 0 {
		return "", errors.New("Decrypt: ciphertext is not a multiple of the block size")
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("Decrypt: %w", err)
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
