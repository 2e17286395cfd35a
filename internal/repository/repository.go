package repository

import (
	"context"
	"errors"
	"strings"

	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"gorm.io/gorm"
)

// ErrConflict is returned when a conditional write matched no row because
// another writer got there first.
var ErrConflict = errors.New("repository: conditional update matched no rows")

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports a unique constraint violation. Requires
// TranslateError on the gorm config, with a string fallback for drivers
// that do not translate.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return containsAny(msg, "UNIQUE constraint failed", "duplicate key value", "SQLSTATE 23505")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func withOp(ctx context.Context, function string) context.Context {
	return ctxutil.WithOperation(ctx, "repository", function)
}

// Transactor runs a function inside one database transaction. Repositories
// bound with WithTx(tx) take part in it.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}
