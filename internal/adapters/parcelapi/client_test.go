package parcelapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climatrack/climatrack/internal/core/domain"
)

func TestClient_CreateParcel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/parcels", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var rec domain.ParcelRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec.ID = 17
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	owner, name := int64(3), "Vines"
	out, err := New(srv.URL, "tok", srv.Client()).CreateParcel(context.Background(), domain.ParcelRecord{OwnerID: &owner, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, int64(17), out.ID)
	assert.Equal(t, "Vines", *out.Name)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400,"code":"BAD_REQUEST","message":"owner_id: required"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", srv.Client()).UpdateParcel(context.Background(), domain.ParcelRecord{ID: 1})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "owner_id: required", se.Message)
}

func TestClient_DeleteMissingIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL, "", srv.Client()).DeleteParcel(context.Background(), 5))
}

func TestClient_ContextTokenOverridesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer owner-9", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx := WithToken(context.Background(), "owner-9")
	assert.NoError(t, New(srv.URL, "default", srv.Client()).DeleteParcel(ctx, 5))
}
