package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an error independently of its transport.
type Kind int

const (
	KindInternal Kind = iota
	KindMalformedRequest
	KindSignatureInvalid
	KindNotFound
	KindInvalidTransition
)

func (k Kind) String() string {
	switch k {
	case KindMalformedRequest:
		return "malformed_request"
	case KindSignatureInvalid:
		return "signature_invalid"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	default:
		return "internal"
	}
}

// InternalMessage is the only text clients see for server-side failures.
const InternalMessage = "Internal error"

// Error represents an application error
type Error struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(kind Kind, code int, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func MalformedRequest(message string) *Error {
	return New(KindMalformedRequest, http.StatusBadRequest, message, nil)
}

func SignatureInvalid() *Error {
	return New(KindSignatureInvalid, http.StatusBadRequest, "Invalid signature", nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

// InvalidTransition hides the lifecycle detail from the caller; the cause
// stays available through Unwrap for logging.
func InvalidTransition(err error) *Error {
	return New(KindInvalidTransition, http.StatusInternalServerError, InternalMessage, err)
}

func Internal(err error) *Error {
	return New(KindInternal, http.StatusInternalServerError, InternalMessage, err)
}

// From returns err as an *Error, wrapping anything else as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf reports the Kind of err. Errors outside this package are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ErrorMiddleware renders the last error a handler attached with c.Error,
// unless the handler already wrote a response.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			appErr := From(c.Errors.Last().Err)
			c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
		}
	}
}
