package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode — машиночитаемый код ошибки для клиента.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeStaleState        ErrorCode = "STALE_STATE"
	ErrCodeEscrow            ErrorCode = "ESCROW_ERROR"
)

var codeToHTTPStatus = map[ErrorCode]int{
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeInvalidTransition: http.StatusConflict,
	ErrCodeStaleState:        http.StatusConflict,
	ErrCodeEscrow:            http.StatusUnprocessableEntity,
}

// AppError — ошибка бизнес-слоя с кодом и безопасным для клиента сообщением.
// Retryable означает, что повтор той же операции имеет смысл (гонка версий,
// таймаут платёжного шлюза); ошибки валидации и авторизации не ретраятся.
type AppError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	cause     error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// HTTPStatus возвращает HTTP статус, соответствующий коду ошибки.
func (e *AppError) HTTPStatus() int {
	if status, ok := codeToHTTPStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New создаёт AppError с кодом и сообщением.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap оборачивает исходную ошибку в AppError.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, cause: err}
}

// InvalidTransition — действие неприменимо к текущему статусу работы.
func InvalidTransition(from, action string) *AppError {
	return New(ErrCodeInvalidTransition,
		fmt.Sprintf("действие %q недопустимо из статуса %q", action, from))
}

// StaleState — версия записи изменилась между чтением и записью.
// Клиенту следует перечитать состояние и повторить запрос.
func StaleState() *AppError {
	return &AppError{
		Code:      ErrCodeStaleState,
		Message:   "состояние изменилось, повторите запрос",
		Retryable: true,
	}
}

// Escrow — ошибка эскроу-леджера.
func Escrow(message string, retryable bool) *AppError {
	return &AppError{Code: ErrCodeEscrow, Message: message, Retryable: retryable}
}

// WrapEscrow оборачивает ошибку коллаборатора в ошибку эскроу.
func WrapEscrow(err error, message string, retryable bool) *AppError {
	return &AppError{Code: ErrCodeEscrow, Message: message, Retryable: retryable, cause: err}
}

// Типовые ошибки доменных сущностей.
var (
	ErrJobNotFound     = New(ErrCodeNotFound, "работа не найдена")
	ErrEscrowNotFound  = New(ErrCodeNotFound, "эскроу-запись не найдена")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "доступ запрещён")
)

func is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound сообщает, является ли ошибка ошибкой "не найдено".
func IsNotFound(err error) bool { return is(err, ErrCodeNotFound) }

// IsForbidden сообщает, является ли ошибка запретом доступа.
func IsForbidden(err error) bool { return is(err, ErrCodeForbidden) }

// IsInvalidTransition сообщает, что действие неприменимо к статусу.
func IsInvalidTransition(err error) bool { return is(err, ErrCodeInvalidTransition) }

// IsStaleState сообщает о конфликте версий.
func IsStaleState(err error) bool { return is(err, ErrCodeStaleState) }

// IsRetryable сообщает, имеет ли смысл повтор операции.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable
}
