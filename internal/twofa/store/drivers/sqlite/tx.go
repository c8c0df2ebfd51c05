package sqlite

import (
	"database/sql"

	"github.com/aussiebroadwan/totpguard/internal/twofa/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Users() store.Users       { return &usersRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions { return &sessionsRepo{db: t.tx} }
