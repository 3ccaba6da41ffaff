package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("po 9: %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: amount", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: stale version", shared.ErrStateConflict), http.StatusConflict},
		{db.TranslateError(&pgconn.PgError{Code: "40001"}), http.StatusConflict},
		{shared.ErrDuplicate, http.StatusConflict},
		{shared.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.status, body.Status)
	}
}

func TestRespondErrorValidationFields(t *testing.T) {
	type payload struct {
		Name string `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	rec := httptest.NewRecorder()
	RespondError(rec, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "required", body.Fields["Name"])
}
