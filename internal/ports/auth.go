package ports

import (
	"context"
	"errors"
)

// Rejection reasons returned by AuthValidator implementations. Callers match
// with errors.Is; adapters may wrap these with lookup detail.
var (
	ErrInvalidCredential = errors.New("invalid api key")
	ErrCredentialRevoked = errors.New("api key revoked")
	ErrCredentialExpired = errors.New("api key expired")
)

// AuthValidator resolves a tenant credential to the owning tenant ID.
// Validity is decided fresh on every call; results are never cached.
type AuthValidator interface {
	Validate(ctx context.Context, credential string) (tenantID string, err error)
}
