package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookstore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGateway_QueryStatus(t *testing.T) {
	var gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotRef = req.TxnRef
		_, _ = w.Write([]byte(`{"status":"paid"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second)
	status, err := gw.QueryStatus(context.Background(), "ref-1")

	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, status)
	assert.Equal(t, "ref-1", gotRef)
}

func TestHTTPGateway_QueryStatus_Errors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{name: "server error", code: http.StatusInternalServerError, body: "boom"},
		{name: "unknown status", code: http.StatusOK, body: `{"status":"refunded"}`},
		{name: "broken json", code: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPGateway(srv.URL, time.Second).QueryStatus(context.Background(), "ref")
			assert.Error(t, err)
		})
	}
}

func TestCODGateway_AlwaysPending(t *testing.T) {
	status, err := CODGateway{}.QueryStatus(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, status)
}
