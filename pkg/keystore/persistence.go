package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nightpass/nightpass/internal/vault"
	"go.uber.org/zap"
)

// Persistence handles the disk I/O for a file-backed MemStore.
// Values are sealed with AES-GCM before they touch the disk; keys stay readable.
type Persistence struct {
	path string
	key  []byte
	log  *zap.Logger
	mu   sync.Mutex // Protects concurrent writes to the filesystem
}

// NewPersistence prepares <dir>/<namespace>.json. key must be vault.KeySize bytes.
func NewPersistence(dir, namespace string, key []byte, log *zap.Logger) (*Persistence, error) {
	if len(key) != vault.KeySize {
		return nil, fmt.Errorf("keystore key must be %d bytes, got %d", vault.KeySize, len(key))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Persistence{
		path: filepath.Join(dir, namespace+".json"),
		key:  key,
		log:  log,
	}, nil
}

// Path is the file the namespace is written to.
func (p *Persistence) Path() string {
	return p.path
}

// Save writes the whole namespace atomically: a temp file is written and renamed over
// the previous one, so a crash leaves either the old or the new state.
func (p *Persistence) Save(data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sealed := make(map[string]string, len(data))
	for k, v := range data {
		ct, err := vault.Encrypt(v, p.key)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", k, err)
		}
		sealed[k] = ct
	}

	bytes, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return err
	}

	tempPath := p.path + ".tmp"
	if err := os.WriteFile(tempPath, bytes, 0o600); err != nil {
		return err
	}
	return os.Rename(tempPath, p.path)
}

// Load returns everything that can be decrypted. A missing file is an empty namespace;
// entries that fail to decrypt are skipped.
func (p *Persistence) Load() (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]string)

	content, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	var sealed map[string]string
	if err := json.Unmarshal(content, &sealed); err != nil {
		return nil, fmt.Errorf("corrupt keystore file %s: %w", p.path, err)
	}

	for k, ct := range sealed {
		v, err := vault.Decrypt(ct, p.key)
		if err != nil {
			p.log.Warn("keystore: dropping unreadable entry", zap.String("key", k), zap.Error(err))
			continue
		}
		out[k] = v
	}
	return out, nil
}

// OpenFileStore loads (or creates) an encrypted file-backed store.
func OpenFileStore(dir, namespace, passphrase string, log *zap.Logger) (*MemStore, error) {
	key, err := vault.DeriveKey(passphrase, namespace)
	if err != nil {
		return nil, err
	}
	p, err := NewPersistence(dir, namespace, key, log)
	if err != nil {
		return nil, err
	}
	data, err := p.Load()
	if err != nil {
		if log != nil {
			log.Warn("keystore: starting empty", zap.Error(err))
		}
		data = nil
	}
	return NewMemStore(data, p, log), nil
}
