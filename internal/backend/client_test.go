package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/noo-bita/propinv/internal/config"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.BackendConfig{
		BaseURL:      srv.URL,
		Token:        "tok",
		Timeout:      "2s",
		ItemsPath:    "/api/inventory",
		RequestsPath: "/api/requests",
		SummaryPath:  "/api/dashboard/summary",
	}, zerolog.Nop())
}

func TestRecordsAcceptArrayAndEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array", `[{"id":1},{"id":2}]`, 2},
		{"envelope", `{"data":[{"id":1}],"meta":{"total":1}}`, 1},
		{"skips non-objects", `[{"id":1}, 3, null, "x"]`, 1},
		{"empty body", ``, 0},
		{"empty envelope", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/inventory" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Authorization = %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			records, err := client.Items(context.Background())
			if err != nil {
				t.Fatalf("Items() error = %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestRequestsUnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Requests(context.Background())
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("error = %v, want ErrUnexpectedStatus", err)
	}
}

func TestRecordsMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":`))
	})

	if _, err := client.Items(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSummaryCoercesNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"total_items":42,"budget_remaining":"1500.50","label":"n/a","active":true}}`))
	})

	summary, err := client.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary["total_items"] != 42 {
		t.Errorf("total_items = %v", summary["total_items"])
	}
	if summary["budget_remaining"] != 1500.5 {
		t.Errorf("budget_remaining = %v", summary["budget_remaining"])
	}
	if _, ok := summary["label"]; ok {
		t.Error("non-numeric field must be dropped")
	}
	if _, ok := summary["active"]; ok {
		t.Error("boolean field must be dropped")
	}
}
