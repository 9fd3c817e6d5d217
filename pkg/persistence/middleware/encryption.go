package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
)

// encryptedPrefix marks an interface value sealed by the encryption middleware.
const encryptedPrefix = "enc:v1:"

// ErrNotEncrypted is returned when a loaded document holds a plain value.
var ErrNotEncrypted = errors.New("graph value is not encrypted")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	ports.GraphStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals every node input and
// output value with AES-GCM. Graph structure (IDs, types, connections) stays
// readable so stores can still list and index documents.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.GraphStore) ports.GraphStore {
		return &encryptionMiddleware{GraphStore: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, doc *document.Document) error {
	sealed := doc.Clone()
	for i := range sealed.Nodes {
		n := &sealed.Nodes[i]
		if err := m.seal(n.Inputs); err != nil {
			return fmt.Errorf("failed to encrypt node %q: %w", n.ID, err)
		}
		if err := m.seal(n.Outputs); err != nil {
			return fmt.Errorf("failed to encrypt node %q: %w", n.ID, err)
		}
	}
	return m.GraphStore.Save(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, graphID string) (*document.Document, error) {
	doc, err := m.GraphStore.Load(ctx, graphID)
	if err != nil {
		return nil, err
	}
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if err := m.open(n.Inputs); err != nil {
			return nil, fmt.Errorf("failed to decrypt node %q: %w", n.ID, err)
		}
		if err := m.open(n.Outputs); err != nil {
			return nil, fmt.Errorf("failed to decrypt node %q: %w", n.ID, err)
		}
	}
	return doc, nil
}

func (m *encryptionMiddleware) seal(values map[string]any) error {
	for k, v := range values {
		plain, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		ciphertext, err := encrypt(plain, m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		values[k] = encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return nil
}

// open fails on plain values: a store configured for encryption never
// serves unencrypted data.
func (m *encryptionMiddleware) open(values map[string]any) error {
	for k, v := range values {
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(s, encryptedPrefix) {
			return fmt.Errorf("%s: %w", k, ErrNotEncrypted)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, encryptedPrefix))
		if err != nil {
			return fmt.Errorf("%s: failed to decode ciphertext base64: %w", k, err)
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}

		dec := json.NewDecoder(strings.NewReader(string(plain)))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%s: failed to unmarshal decrypted value: %w", k, err)
		}
		values[k] = value
	}
	return nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
