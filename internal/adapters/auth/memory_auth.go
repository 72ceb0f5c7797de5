package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jadavkeshav/log-management/internal/ports"
)

// Key is one credential record in the in-memory table.
type Key struct {
	TenantID  string
	Revoked   bool
	ExpiresAt time.Time // zero means no expiry
}

// MemoryValidator is a static credential table for tests and local runs.
// The same freshness rule applies as for the database-backed validator:
// revocation and expiry are evaluated on every call.
type MemoryValidator struct {
	mu   sync.RWMutex
	keys map[string]Key
}

func NewMemoryValidator(keys map[string]Key) *MemoryValidator {
	if keys == nil {
		keys = make(map[string]Key)
	}
	return &MemoryValidator{keys: keys}
}

func (v *MemoryValidator) Validate(_ context.Context, credential string) (string, error) {
	v.mu.RLock()
	key, ok := v.keys[credential]
	v.mu.RUnlock()

	if !ok {
		return "", ports.ErrInvalidCredential
	}
	if key.Revoked {
		return "", ports.ErrCredentialRevoked
	}
	if !key.ExpiresAt.IsZero() && key.ExpiresAt.Before(time.Now()) {
		return "", ports.ErrCredentialExpired
	}
	return key.TenantID, nil
}

// Set adds or replaces a credential record.
func (v *MemoryValidator) Set(credential string, key Key) {
	v.mu.Lock()
	v.keys[credential] = key
	v.mu.Unlock()
}

var _ ports.AuthValidator = (*MemoryValidator)(nil)
