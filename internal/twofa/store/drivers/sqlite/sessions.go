package sqlite

import (
	"context"

	"github.com/aussiebroadwan/totpguard/internal/twofa/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token_hash, user_id, show_2fa_setup, authenticated, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TokenHash, s.UserID, s.ShowSetup, s.Authenticated, s.ExpiresAt.UTC(), nowUTC())
	return err
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, token_hash, user_id, show_2fa_setup, authenticated, expires_at, created_at
		 FROM sessions WHERE token_hash = ? AND expires_at > ?`,
		tokenHash, nowUTC())

	var s domain.Session
	if err := row.Scan(&s.ID, &s.TokenHash, &s.UserID, &s.ShowSetup,
		&s.Authenticated, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, sessionID string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, token_hash, user_id, show_2fa_setup, authenticated, expires_at, created_at
		 FROM sessions WHERE id = ? AND expires_at > ?`,
		sessionID, nowUTC())

	var s domain.Session
	if err := row.Scan(&s.ID, &s.TokenHash, &s.UserID, &s.ShowSetup,
		&s.Authenticated, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

// ConsumeSetupFlag clears the flag and reports its prior value in one
// statement, so two concurrent renders cannot both see true.
func (r *sessionsRepo) ConsumeSetupFlag(ctx context.Context, sessionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET show_2fa_setup = 0
		 WHERE id = ? AND show_2fa_setup = 1`,
		sessionID)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *sessionsRepo) SetSetupFlag(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET show_2fa_setup = 1 WHERE id = ?`, sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) MarkAuthenticated(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET authenticated = 1 WHERE id = ?`, sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, nowUTC())
	return err
}
