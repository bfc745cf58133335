package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lalith-99/sitetrack/internal/crmerr"
)

// Constraint names from the migrations. A 23505 on one of these is a
// domain error the user can act on, not a storage failure.
const (
	constraintRepName   = "representatives_owner_name_key"
	constraintRepPhone  = "representatives_owner_phone_key"
	constraintSiteTitle = "sites_owner_title_key"

	uniqueViolation = "23505"
)

// translateUnique maps a unique violation to its domain error. name, phone
// and title are the values the caller tried to write, so the message can
// name them. Any other error comes back unchanged.
func translateUnique(err error, name, phone, title string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintRepName:
		return crmerr.DuplicateName(name)
	case constraintRepPhone:
		return crmerr.DuplicatePhone(phone)
	case constraintSiteTitle:
		return crmerr.DuplicateTitle(title)
	}
	return err
}
