package backend

import (
	"context"
)

// Row is one table row keyed by column name.
type Row map[string]any

type Op string

const (
	OpEq     Op = "="
	OpNeq    Op = "<>"
	OpGt     Op = ">"
	OpGte    Op = ">="
	OpLt     Op = "<"
	OpLte    Op = "<="
	OpLike   Op = "LIKE"
	OpILike  Op = "ILIKE"
	OpIn     Op = "IN"
	OpIsNull Op = "IS NULL"
)

// Condition is one predicate; conditions of a Filter are ANDed.
type Condition struct {
	Column string
	Op     Op
	Value  any
}

type Filter []Condition

// Eq is shorthand for the most common predicate.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Op: OpEq, Value: value}
}

type Order struct {
	Column     string
	Descending bool
}

// DataService is the generic table contract every screen uses.
// Failures unwrap to ErrNotFound, ErrPermissionDenied, ErrNetwork,
// ErrConstraintViolation or ErrUnknown.
type DataService interface {
	Select(ctx context.Context, table string, filter Filter, order []Order) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update fails with ErrNotFound when no row matches.
	Update(ctx context.Context, table string, filter Filter, patch Row) error
	Delete(ctx context.Context, table string, filter Filter) error
	Count(ctx context.Context, table string, filter Filter) (int64, error)
}

// TokenSource hands out the access token of the signed-in user, or "" when
// nobody is signed in.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}
