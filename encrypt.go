/*
Package requestkit – field-level encryption capability.
*/
package requestkit

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FieldEncryptor is the injected capability a composer uses to encrypt
// flagged parameters before finalizing a request. The encryption
// context binds the ciphertext to its field.
type FieldEncryptor interface {
	Encrypt(ctx context.Context, plaintext []byte, field string, encryptionContext map[string]string) ([]byte, error)
}

// AESFieldEncryptor is an AES-256-GCM FieldEncryptor keyed from a
// password. The field name and encryption context are bound into the
// GCM additional data, so ciphertext cannot be replayed across fields.
type AESFieldEncryptor struct {
	key []byte
}

// NewAESFieldEncryptor derives the AES key from the password.
func NewAESFieldEncryptor(password string) (*AESFieldEncryptor, error) {
	if password == "" {
		return nil, NewArgError("encryption password must not be empty")
	}
	h := sha256.Sum256([]byte(password))
	return &AESFieldEncryptor{key: h[:]}, nil
}

func (e *AESFieldEncryptor) Encrypt(_ context.Context, plaintext []byte, field string, encryptionContext map[string]string) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, additionalData(field, encryptionContext)), nil
}

// Decrypt reverses Encrypt; the same field and context must be supplied.
func (e *AESFieldEncryptor) Decrypt(_ context.Context, ciphertext []byte, field string, encryptionContext map[string]string) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, NewArgError("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, additionalData(field, encryptionContext))
	if err != nil {
		return nil, NewError(fmt.Sprintf("field decryption failed for %q", field),
			WithCode(ErrEncryption), WithCause(err))
	}
	return plain, nil
}

func (e *AESFieldEncryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func additionalData(field string, encryptionContext map[string]string) []byte {
	parts := []string{field}
	keys := make([]string, 0, len(encryptionContext))
	for k := range encryptionContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+encryptionContext[k])
	}
	return []byte(strings.Join(parts, ";"))
}
