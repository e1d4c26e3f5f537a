// Package apperr описывает таксономию ошибок предметной области.
//
// Сервисы возвращают *Error с одним из видов (Kind), транспорт переводит вид в HTTP-статус.
// Ошибки хранилища в эту таксономию не входят и оборачиваются обычным fmt.Errorf.
package apperr

import (
	"errors"
	"fmt"
)

// Kind вид ошибки
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuthorization
	KindGateway
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindGateway:
		return "gateway"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error ошибка предметной области
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает по виду и коду, поэтому объявленные заранее ошибки
// (например availability.ErrNoRules) работают как sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(code, format string, args ...any) *Error {
	return newf(KindValidation, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newf(KindConflict, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return newf(KindNotFound, code, format, args...)
}

func Authorization(code, format string, args ...any) *Error {
	return newf(KindAuthorization, code, format, args...)
}

func State(code, format string, args ...any) *Error {
	return newf(KindState, code, format, args...)
}

// Gateway оборачивает сбой внешнего платёжного шлюза
func Gateway(code string, err error) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: "payment gateway error", Err: err}
}

// KindOf возвращает вид первой *Error в цепочке
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind проверяет вид ошибки
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// CodeOf возвращает код первой *Error в цепочке
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
