package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.Validation([]apperr.FieldError{{Field: "items", Message: "is required"}}), http.StatusBadRequest, "validation_failed"},
		{"not found", fmt.Errorf("order x: %w", apperr.NotFound("order_not_found", "order not found")), http.StatusNotFound, "order_not_found"},
		{"conflict", apperr.Conflict("insufficient_stock", "insufficient stock"), http.StatusConflict, "insufficient_stock"},
		{"unauthorized", apperr.Unauthorized("invalid_token", "invalid token"), http.StatusUnauthorized, "invalid_token"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)

			WriteError(rec, logging.Discard(), req, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestWriteErrorHidesUnexpectedDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, logging.Discard(), req, errors.New("dial tcp 10.0.0.1:27017: refused"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestWriteErrorSendsOnlyTypedMessage(t *testing.T) {
	conflict := apperr.Conflict("concurrent_update", "the record was changed concurrently, try again")
	err := errors.Join(
		fmt.Errorf("WriteConflict (112) on pharmacy.inventory: %w", conflict),
		errors.New("compensation: restore stock p-1: server selection timeout"),
	)
	rec := httptest.NewRecorder()
	WriteError(rec, logging.Discard(), httptest.NewRequest(http.MethodPost, "/api/orders", nil), err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "the record was changed concurrently, try again", body.Error)
	assert.Equal(t, "concurrent_update", body.Code)
	assert.NotContains(t, rec.Body.String(), "WriteConflict")
	assert.NotContains(t, rec.Body.String(), "server selection")
}

func TestDecode(t *testing.T) {
	type in struct {
		Quantity int `json:"quantity"`
	}

	t.Run("ok", func(t *testing.T) {
		var v in
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":3}`))
		require.NoError(t, Decode(req, &v))
		assert.Equal(t, 3, v.Quantity)
	})
	t.Run("wrong type", func(t *testing.T) {
		var v in
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":"three"}`))
		err := Decode(req, &v)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		require.Len(t, apperr.FieldsOf(err), 1)
		assert.Equal(t, "quantity", apperr.FieldsOf(err)[0].Field)
	})
	t.Run("garbage", func(t *testing.T) {
		var v in
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		assert.ErrorIs(t, Decode(req, &v), ErrInvalidBody)
	})
	t.Run("unknown field", func(t *testing.T) {
		var v in
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":1}`))
		assert.ErrorIs(t, Decode(req, &v), ErrInvalidBody)
	})
}
