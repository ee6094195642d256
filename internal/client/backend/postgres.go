package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/adullam/internal/common"
	"github.com/dmitrijs2005/adullam/internal/dbx"
	"github.com/jackc/pgx/v5"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var ErrUnfiltered = fmt.Errorf("%w: update and delete require a filter", common.ErrPermissionDenied)

// Database roles the row-level security policies are written against.
const (
	RoleAnon          = "anon"
	RoleAuthenticated = "authenticated"
)

// Conn is a connection pool that can open transactions; *sql.DB satisfies it.
type Conn interface {
	dbx.DBTX
	dbx.TxBeginner
}

// PostgresDataService implements DataService over the backend's Postgres.
// Every call runs in its own transaction that first switches to the role and
// JWT claims of the signed-in user, so row-level security applies to it.
type PostgresDataService struct {
	db     Conn
	tokens TokenSource
}

type DataOption func(*PostgresDataService)

// WithTokenSource binds the service to the session that tokens belongs to.
// Without it every call runs as the anonymous role.
func WithTokenSource(tokens TokenSource) DataOption {
	return func(r *PostgresDataService) {
		r.tokens = tokens
	}
}

func NewPostgresDataService(db Conn, opts ...DataOption) *PostgresDataService {
	r := &PostgresDataService{db: db}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ DataService = (*PostgresDataService)(nil)
var _ TokenSource = (*HTTPAuthClient)(nil)

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mapPgError(fmt.Errorf("failed to connect to database: %w", err))
	}
	return db, nil
}

// requestClaims returns the role and the JSON claims of the current access
// token. Claims are empty when nobody is signed in.
func (r *PostgresDataService) requestClaims(ctx context.Context) (string, string, error) {
	if r.tokens == nil {
		return RoleAnon, "", nil
	}
	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return "", "", err
	}
	if token == "" {
		return RoleAnon, "", nil
	}

	claims, err := ParseAccessToken(token)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", "", fmt.Errorf("encode jwt claims: %w", err)
	}
	role := claims.Role
	if role == "" {
		role = RoleAuthenticated
	}
	return role, string(raw), nil
}

// scoped runs fn in a transaction that carries the caller's identity.
func (r *PostgresDataService) scoped(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	role, claims, err := r.requestClaims(ctx)
	if err != nil {
		return err
	}
	quotedRole, err := quoteIdent(role)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, "SET LOCAL ROLE "+quotedRole); err != nil {
			return mapPgError(err)
		}
		if claims != "" {
			if _, err := tx.ExecContext(ctx, setClaimsQuery, claims); err != nil {
				return mapPgError(err)
			}
		}
		return fn(ctx, tx)
	})
	if err == nil || common.Kind(err) != common.ErrUnknown || errors.Is(err, common.ErrUnknown) {
		return err
	}
	// begin or commit failed
	return mapPgError(err)
}

const setClaimsQuery = "SELECT set_config('request.jwt.claims', $1, true)"

func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("%w: invalid identifier %q", common.ErrPermissionDenied, name)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

// queryBuilder accumulates positional arguments.
type queryBuilder struct {
	args []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(filter Filter) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filter))
	for _, c := range filter {
		col, err := quoteIdent(c.Column)
		if err != nil {
			return "", err
		}
		switch c.Op {
		case OpIsNull:
			parts = append(parts, col+" IS NULL")
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY(%s)", col, b.arg(c.Value)))
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike:
			parts = append(parts, fmt.Sprintf("%s %s %s", col, c.Op, b.arg(c.Value)))
		default:
			return "", fmt.Errorf("%w: unsupported operator %q", common.ErrPermissionDenied, c.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func orderBy(order []Order) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		col, err := quoteIdent(o.Column)
		if err != nil {
			return "", err
		}
		if o.Descending {
			col += " DESC"
		}
		parts = append(parts, col)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// sortedColumns returns row keys in a stable order.
func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	slices.Sort(cols)
	return cols
}

func (r *PostgresDataService) Select(ctx context.Context, table string, filter Filter, order []Order) ([]Row, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}
	var b queryBuilder
	where, err := b.where(filter)
	if err != nil {
		return nil, err
	}
	ob, err := orderBy(order)
	if err != nil {
		return nil, err
	}

	var out []Row
	err = r.scoped(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, "SELECT * FROM "+t+where+ob, b.args...)
		if err != nil {
			return mapPgError(err)
		}
		defer rows.Close()

		out, err = scanRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresDataService) Insert(ctx context.Context, table string, row Row) (Row, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, fmt.Errorf("%w: empty row", common.ErrConstraintViolation)
	}

	var b queryBuilder
	cols := sortedColumns(row)
	names := make([]string, 0, len(cols))
	values := make([]string, 0, len(cols))
	for _, c := range cols {
		q, err := quoteIdent(c)
		if err != nil {
			return nil, err
		}
		names = append(names, q)
		values = append(values, b.arg(row[c]))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		t, strings.Join(names, ", "), strings.Join(values, ", "))

	var out []Row
	err = r.scoped(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, query, b.args...)
		if err != nil {
			return mapPgError(err)
		}
		defer rows.Close()

		out, err = scanRows(rows)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return mapPgError(sql.ErrNoRows)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *PostgresDataService) Update(ctx context.Context, table string, filter Filter, patch Row) error {
	t, err := quoteIdent(table)
	if err != nil {
		return err
	}
	if len(filter) == 0 {
		return ErrUnfiltered
	}
	if len(patch) == 0 {
		return nil
	}

	var b queryBuilder
	sets := make([]string, 0, len(patch))
	for _, c := range sortedColumns(patch) {
		q, err := quoteIdent(c)
		if err != nil {
			return err
		}
		sets = append(sets, q+" = "+b.arg(patch[c]))
	}
	where, err := b.where(filter)
	if err != nil {
		return err
	}

	query := "UPDATE " + t + " SET " + strings.Join(sets, ", ") + where
	return r.scoped(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, query, b.args...)
		if err != nil {
			return mapPgError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return mapPgError(err)
		}
		if n == 0 {
			return fmt.Errorf("%w: no %s row matches", common.ErrNotFound, table)
		}
		return nil
	})
}

func (r *PostgresDataService) Delete(ctx context.Context, table string, filter Filter) error {
	t, err := quoteIdent(table)
	if err != nil {
		return err
	}
	if len(filter) == 0 {
		return ErrUnfiltered
	}
	var b queryBuilder
	where, err := b.where(filter)
	if err != nil {
		return err
	}
	return r.scoped(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t+where, b.args...); err != nil {
			return mapPgError(err)
		}
		return nil
	})
}

func (r *PostgresDataService) Count(ctx context.Context, table string, filter Filter) (int64, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return 0, err
	}
	var b queryBuilder
	where, err := b.where(filter)
	if err != nil {
		return 0, err
	}

	var n int64
	err = r.scoped(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t+where, b.args...).Scan(&n); err != nil {
			return mapPgError(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, mapPgError(err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapPgError(err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

// IsNotFound is a convenience for callers that treat a missing row as empty.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
