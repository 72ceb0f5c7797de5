package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/ports"
)

// PostgresValidator resolves API keys against the key table. Every call hits
// the database so revocation and expiry take effect immediately; nothing is
// cached between messages.
type PostgresValidator struct {
	db     *sql.DB
	table  string
	logger zerolog.Logger
}

func NewPostgresValidator(db *sql.DB, table string, logger zerolog.Logger) *PostgresValidator {
	return &PostgresValidator{
		db:     db,
		table:  table,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

func (v *PostgresValidator) Validate(ctx context.Context, credential string) (string, error) {
	query := fmt.Sprintf(`SELECT tenant_id, revoked, expires_at FROM %s WHERE key = $1`, v.table)

	var (
		tenantID  string
		revoked   bool
		expiresAt sql.NullTime
	)
	err := v.db.QueryRowContext(ctx, query, credential).Scan(&tenantID, &revoked, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrInvalidCredential
	}
	if err != nil {
		return "", fmt.Errorf("lookup api key: %w", err)
	}

	if revoked {
		return "", ports.ErrCredentialRevoked
	}
	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return "", ports.ErrCredentialExpired
	}

	// Best-effort usage tracking; a failed update never blocks auth.
	update := fmt.Sprintf(`UPDATE %s SET last_used = $1 WHERE key = $2`, v.table)
	if _, err := v.db.ExecContext(ctx, update, time.Now(), credential); err != nil {
		v.logger.Warn().Err(err).Msg("update api key last_used")
	}

	return tenantID, nil
}

var _ ports.AuthValidator = (*PostgresValidator)(nil)
