// Copyright 2025.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cryptox encrypts the secrets stored in connection profiles.
//
// The cipher is deterministic under a fixed configuration: encrypting the same
// secret twice yields the same blob, so an unchanged password does not show up
// as an edit. A key derived with PBKDF2 from the configured passphrase, salt
// and iteration count feeds HKDF, which splits it into an AES key and a nonce
// key. The nonce is an HMAC of the init vector and the plaintext, and the
// ciphertext is authenticated with AES-GCM, so a tampered blob or a blob
// produced under another configuration fails to decrypt instead of yielding
// garbage.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	nonceSize = 12
	tagSize   = 16

	encKeyInfo   = "lazycrm secret encryption key"
	nonceKeyInfo = "lazycrm secret nonce key"
)

// Cipher implements ports.SecretCipher.
type Cipher struct {
	aead     cipher.AEAD
	nonceKey []byte
	iv       []byte
}

func hashFunc(name string) (func() hash.Hash, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "-", "")) {
	case "SHA1":
		return sha1.New, nil
	case "", "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", name)
	}
}

// New derives the cipher keys from cfg.
func New(cfg domain.CryptoConfig) (*Cipher, error) {
	if cfg.Passphrase == "" {
		return nil, fmt.Errorf("crypto: passphrase is required")
	}
	if cfg.Iterations < 1 {
		return nil, fmt.Errorf("crypto: iterations must be positive, got %d", cfg.Iterations)
	}
	switch cfg.KeySize {
	case 128, 192, 256:
	default:
		return nil, fmt.Errorf("crypto: key size must be 128, 192 or 256 bits, got %d", cfg.KeySize)
	}
	h, err := hashFunc(cfg.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}

	keyLen := cfg.KeySize / 8
	master := pbkdf2.Key([]byte(cfg.Passphrase), []byte(cfg.Salt), cfg.Iterations, keyLen, h)

	kdf := func(info string, n int) ([]byte, error) {
		out := make([]byte, n)
		if _, err := io.ReadFull(hkdf.New(sha256.New, master, []byte(cfg.InitVector), []byte(info)), out); err != nil {
			return nil, err
		}
		return out, nil
	}

	encKey, err := kdf(encKeyInfo, keyLen)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	nonceKey, err := kdf(nonceKeyInfo, sha256.Size)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive nonce key: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead, nonceKey: nonceKey, iv: []byte(cfg.InitVector)}, nil
}

func (c *Cipher) nonce(plaintext []byte) []byte {
	mac := hmac.New(sha256.New, c.nonceKey)
	mac.Write(c.iv)
	mac.Write(plaintext)
	return mac.Sum(nil)[:nonceSize]
}

// Encrypt returns the base64 encoded nonce and sealed plaintext.
func (c *Cipher) Encrypt(plainText string) (string, error) {
	pt := []byte(plainText)
	nonce := c.nonce(pt)
	out := make([]byte, 0, nonceSize+len(pt)+tagSize)
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, pt, c.iv)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Every failure wraps domain.ErrDecryption.
func (c *Cipher) Decrypt(cipherText string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: malformed secret: %v", domain.ErrDecryption, err)
	}
	if len(raw) < nonceSize+tagSize {
		return "", fmt.Errorf("%w: secret is too short", domain.ErrDecryption)
	}
	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	pt, err := c.aead.Open(nil, nonce, sealed, c.iv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	if !hmac.Equal(nonce, c.nonce(pt)) {
		return "", fmt.Errorf("%w: nonce mismatch", domain.ErrDecryption)
	}
	return string(pt), nil
}
