package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		if r.Header.Get("Content-Type") != "application/json" || json.NewDecoder(r.Body).Decode(&in) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"echo":"` + in["name"] + `"}`))
	}))
	defer srv.Close()

	resp, err := DoJSON(context.Background(), New(time.Second), http.MethodPost, srv.URL, map[string]string{"name": "x"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out map[string]string
	require.NoError(t, resp.Decode(&out))
	require.Equal(t, "x", out["echo"])
}

func TestDoJSONTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := DoJSON(context.Background(), New(time.Second), http.MethodGet, url, nil)
	var te *TransportError
	require.True(t, errors.As(err, &te))
}
