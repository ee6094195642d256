package backend

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/adullam/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// APIError is a failed auth API call. It unwraps to the taxonomy sentinel.
type APIError struct {
	Kind    error
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *APIError) Unwrap() error { return e.Kind }

// apiErrorBody covers both error shapes the auth API emits.
type apiErrorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func mapHTTPError(status int, body []byte) error {
	var b apiErrorBody
	_ = json.Unmarshal(body, &b)

	code := b.ErrorCode
	if code == "" {
		code = b.Error
	}
	msg := firstNonEmpty(b.Msg, b.Message, b.ErrorDescription, b.Error, http.StatusText(status))

	return &APIError{Kind: classifyAuthError(status, code, msg), Status: status, Code: code, Message: msg}
}

func classifyAuthError(status int, code, msg string) error {
	switch code {
	case "invalid_credentials", "invalid_grant", "email_not_confirmed":
		return common.ErrInvalidCredentials
	case "user_already_exists", "email_exists":
		return common.ErrEmailInUse
	case "weak_password":
		return common.ErrWeakPassword
	case "over_request_rate_limit", "over_email_send_rate_limit":
		return common.ErrRateLimited
	case "session_not_found", "refresh_token_not_found", "bad_jwt", "no_authorization":
		return common.ErrNotAuthenticated
	}

	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusTooManyRequests:
		return common.ErrRateLimited
	case strings.Contains(lower, "already registered"):
		return common.ErrEmailInUse
	case strings.Contains(lower, "password should be"):
		return common.ErrWeakPassword
	case strings.Contains(lower, "invalid login credentials"):
		return common.ErrInvalidCredentials
	case status == http.StatusUnauthorized:
		return common.ErrNotAuthenticated
	case status == http.StatusForbidden:
		return common.ErrPermissionDenied
	case status == http.StatusNotFound:
		return common.ErrNotFound
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return common.ErrNetwork
	default:
		return common.ErrUnknown
	}
}

// mapTransportError classifies failures that happened before any response.
func mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrNetwork, err)
}

// mapPgError maps database/sql + pgx failures onto the data taxonomy.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return fmt.Errorf("%w: %w", common.ErrConstraintViolation, err)
		case pgErr.Code == "42501", strings.HasPrefix(pgErr.Code, "28"):
			return fmt.Errorf("%w: %w", common.ErrPermissionDenied, err)
		case pgErr.Code == "42P01":
			return fmt.Errorf("%w: %w", common.ErrNotFound, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return fmt.Errorf("%w: %w", common.ErrNetwork, err)
		}
		return fmt.Errorf("%w: %w", common.ErrUnknown, err)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	return fmt.Errorf("%w: %w", common.ErrUnknown, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
