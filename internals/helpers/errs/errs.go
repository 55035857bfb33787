// Package errs defines the error taxonomy used by the fee ledger core.
// Services return these; controllers translate them to HTTP at the boundary.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindRender
	KindInvariant
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Render(msg string, err error) error {
	return &Error{Kind: KindRender, Msg: msg, Err: err}
}

// Invariant marks states that must never be reached; the enclosing
// transaction has to abort, never partially commit.
func Invariant(msg string, err error) error {
	return &Error{Kind: KindInvariant, Msg: msg, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsRender(err error) bool     { return KindOf(err) == KindRender }

// HTTPStatus maps a taxonomy error to the status code the boundary responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindConflict:
		return fiber.StatusConflict
	case KindNotFound:
		return fiber.StatusNotFound
	case KindRender:
		return fiber.StatusBadGateway
	case KindInvariant:
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
// The typed pgconn check is authoritative on Postgres (SQLSTATE 23505); the
// string fallback covers the sqlite dialect used by tests.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed")
}
