package keystore

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Backend selects where credentials live.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Options configures Open.
type Options struct {
	Backend   Backend
	Dir       string
	Namespace string
	Secret    string
}

// Open builds the Store described by opts.
// The caller doesn't care which backend it gets; SQLite stores also implement io.Closer.
func Open(opts Options, log *zap.Logger) (Store, error) {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Secret == "" {
		opts.Secret = opts.Namespace
	}

	switch opts.Backend {
	case BackendMemory:
		return NewMemStore(nil, nil, log), nil
	case BackendSQLite:
		return OpenSQLStore(filepath.Join(opts.Dir, "keystore.db"), opts.Namespace, opts.Secret, log)
	case BackendFile, "":
		return OpenFileStore(opts.Dir, opts.Namespace, opts.Secret, log)
	default:
		return nil, fmt.Errorf("unknown keystore backend %q", opts.Backend)
	}
}
