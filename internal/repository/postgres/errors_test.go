package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"github.com/stretchr/testify/assert"
)

func TestTranslateUnique(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   error
		wantSubstr string
	}{
		{
			name:       "rep name",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: constraintRepName},
			wantKind:   crmerr.ErrDuplicateName,
			wantSubstr: "Kim",
		},
		{
			name:       "rep phone",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraintRepPhone}),
			wantKind:   crmerr.ErrDuplicatePhone,
			wantSubstr: "010-1234-5678",
		},
		{
			name:       "site title",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: constraintSiteTitle},
			wantKind:   crmerr.ErrDuplicateTitle,
			wantSubstr: "Tower A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateUnique(tt.err, "Kim", "010-1234-5678", "Tower A")
			assert.ErrorIs(t, got, tt.wantKind)
			assert.Contains(t, got.Error(), tt.wantSubstr)
		})
	}
}

func TestTranslateUniquePassesThroughOtherErrors(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "whatever"}
	assert.Same(t, error(fk), translateUnique(fk, "", "", ""))

	unknown := &pgconn.PgError{Code: "23505", ConstraintName: "actors_email_key"}
	assert.Same(t, error(unknown), translateUnique(unknown, "", "", ""))

	plain := errors.New("boom")
	assert.Same(t, plain, translateUnique(plain, "", "", ""))
}
