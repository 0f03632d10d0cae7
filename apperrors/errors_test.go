package apperrors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yashrajoria/storefront-service/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestKindsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		err  *apperrors.Error
		kind apperrors.Kind
		code int
	}{
		{apperrors.MalformedRequest("bad"), apperrors.KindMalformedRequest, http.StatusBadRequest},
		{apperrors.SignatureInvalid(), apperrors.KindSignatureInvalid, http.StatusBadRequest},
		{apperrors.NotFound("missing"), apperrors.KindNotFound, http.StatusNotFound},
		{apperrors.InvalidTransition(errors.New("x")), apperrors.KindInvalidTransition, http.StatusInternalServerError},
		{apperrors.Internal(errors.New("db down")), apperrors.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.err.Kind, tc.kind.String())
		assert.Equal(t, tc.code, tc.err.Code, tc.kind.String())
	}
}

func TestInternalMessagesAreGeneric(t *testing.T) {
	cause := errors.New("pq: relation orders does not exist")

	for _, e := range []*apperrors.Error{apperrors.Internal(cause), apperrors.InvalidTransition(cause)} {
		assert.Equal(t, apperrors.InternalMessage, e.Message)
		assert.NotContains(t, e.JSON(), "relation")
		assert.ErrorIs(t, e, cause)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("verify: %w", apperrors.NotFound("Order not found"))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(wrapped))
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(errors.New("plain")))
}

func TestFrom(t *testing.T) {
	orig := apperrors.SignatureInvalid()
	assert.Same(t, orig, apperrors.From(orig))

	other := apperrors.From(errors.New("boom"))
	assert.Equal(t, apperrors.KindInternal, other.Kind)
}

func TestErrorMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/bad", func(c *gin.Context) { _ = c.Error(apperrors.MalformedRequest("Product ids are required")) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("secret detail")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	assert.Equal(t, "Product ids are required", body["error"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestErrorMiddleware_KeepsWrittenResponse(t *testing.T) {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/written", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("Order not found"))
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Order not found"}`, w.Body.String())
}
