// Package keystore persists the client's bearer credentials.
//
// A Store holds string values under a fixed application namespace and survives process
// restarts (except MemStore without a persister). It never reports failures to callers:
// a value that cannot be read is simply absent, and a write that cannot be committed is
// logged and dropped.
package keystore

// DefaultNamespace scopes stored values to this application.
const DefaultNamespace = "com.nightpass.client"

// Fixed keys under which the session credentials are stored.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// CredentialKeys lists every key ClearAll is guaranteed to remove.
var CredentialKeys = []string{KeyAccessToken, KeyRefreshToken}

// Reader is the read side used by the transport client.
type Reader interface {
	// Get returns the value for key, or ok=false when it is absent or unreadable.
	Get(key string) (value string, ok bool)
}

// Writer is the write side used by the session manager.
type Writer interface {
	// Save replaces any prior value for key. A Get in the same process observes it.
	Save(key, value string)
	// Delete removes key; deleting an absent key is a no-op.
	Delete(key string)
	// ClearAll removes every value in the namespace.
	ClearAll()
}

// Store combines both sides.
type Store interface {
	Reader
	Writer
}
