package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// nullText creates a pgtype.Text with empty string handling
func nullText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// optionalText maps a nullable column onto an optional domain string
func optionalText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func textPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func timestamptzPtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func optionalTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// decimalToNumeric converts decimal.Decimal to pgtype.Numeric
func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return n, fmt.Errorf("scan numeric %s: %w", d.String(), err)
	}
	return n, nil
}

// pgNumericToDecimal converts pgtype.Numeric to decimal.Decimal
func pgNumericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	str, err := n.MarshalJSON()
	if err != nil {
		return decimal.Zero, fmt.Errorf("marshal numeric: %w", err)
	}
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	return decimal.NewFromString(string(str))
}

// toDecimals converts scanned numerics in order, stopping at the first failure
func toDecimals(src []pgtype.Numeric, dst ...*decimal.Decimal) error {
	for i, n := range src {
		d, err := pgNumericToDecimal(n)
		if err != nil {
			return err
		}
		*dst[i] = d
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mapError turns driver errors into domain errors. notFound is returned for
// pgx.ErrNoRows; unique violations become ALREADY_EXISTS.
func mapError(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case isUniqueViolation(err):
		return domain.WrapError(domain.ErrorCodeAlreadyExists, op+": record already exists", err)
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.WrapError(domain.ErrorCodeInternalError, op+" failed", err)
}
