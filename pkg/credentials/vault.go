// Package credentials implements an opaque cookie/credential vault: a
// single encrypted file keyed by platform, exposing only Load/Save.
// Callers never see the key-derivation or cipher details — a vault is
// just an opaque-blob-in, opaque-blob-out store.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
)

// ErrNotFound is returned by Load when no blob is stored for a platform.
var ErrNotFound = errors.New("credentials: no stored blob for platform")

const (
	pbkdf2Iterations = 100_000
	keySizeBytes     = 32 // AES-256
)

// storeFile is the on-disk representation: one fixed salt shared by
// every entry, and a map of platform to its authenticated-encrypted blob.
type storeFile struct {
	Salt    string                 `json:"salt"`
	Entries map[string]entryRecord `json:"entries"`
}

type entryRecord struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Vault is the opaque credential store. Every Load/Save derives its
// AES-256-GCM key from the configured secret and the store's fixed
// salt via PBKDF2-HMAC-SHA256 (100,000 iterations).
type Vault struct {
	path   string
	secret []byte

	mu   sync.Mutex
	file storeFile
	key  []byte
}

// New loads (or initializes) the vault at cfg.StorePath, deriving its
// key from the secret held in the cfg.SecretEnv environment variable.
func New(cfg *config.CredentialsConfig) (*Vault, error) {
	secret := os.Getenv(cfg.SecretEnv)
	if secret == "" {
		return nil, fmt.Errorf("credentials: environment variable %s is not set", cfg.SecretEnv)
	}

	v := &Vault{path: cfg.StorePath, secret: []byte(secret)}
	if err := v.load(); err != nil {
		return nil, err
	}
	return v, nil
}

// Load returns the decrypted blob stored for platform.
func (v *Vault) Load(platform string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.file.Entries[platform]
	if !ok {
		return nil, ErrNotFound
	}

	nonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode ciphertext: %w", err)
	}

	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(platform))
	if err != nil {
		return nil, fmt.Errorf("credentials: decrypt blob for %s: %w", platform, err)
	}
	return plaintext, nil
}

// Save encrypts blob under platform and persists the whole store file.
// platform is bound into the AEAD's associated data, so a stored blob
// cannot be silently moved to a different platform's key in the file.
func (v *Vault) Save(platform string, blob []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	gcm, err := v.gcm()
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("credentials: generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, blob, []byte(platform))

	if v.file.Entries == nil {
		v.file.Entries = make(map[string]entryRecord)
	}
	v.file.Entries[platform] = entryRecord{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}

	return v.persist()
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	if v.key == nil {
		v.key = pbkdf2.Key(v.secret, v.salt(), pbkdf2Iterations, keySizeBytes, sha256.New)
	}
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("credentials: build cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (v *Vault) salt() []byte {
	salt, _ := base64.StdEncoding.DecodeString(v.file.Salt)
	return salt
}

// load reads the store file if present, or initializes a fresh one
// with a new random salt.
func (v *Vault) load() error {
	data, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("credentials: generate salt: %w", err)
		}
		v.file = storeFile{Salt: base64.StdEncoding.EncodeToString(salt), Entries: make(map[string]entryRecord)}
		return v.persist()
	}
	if err != nil {
		return fmt.Errorf("credentials: read store file: %w", err)
	}
	if err := json.Unmarshal(data, &v.file); err != nil {
		return fmt.Errorf("credentials: parse store file: %w", err)
	}
	return nil
}

func (v *Vault) persist() error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0o755); err != nil {
		return fmt.Errorf("credentials: create store directory: %w", err)
	}
	data, err := json.MarshalIndent(v.file, "", "  ")
	if err != nil {
		return fmt.Errorf("credentials: marshal store file: %w", err)
	}
	return os.WriteFile(v.path, data, 0o600)
}
