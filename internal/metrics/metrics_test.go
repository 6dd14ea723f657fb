package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesHealthAndMetrics(t *testing.T) {
	AggregationsTotal.WithLabelValues("week").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	tests := []struct {
		path string
		want string
	}{
		{"/health", "OK"},
		{"/metrics", "propinv_aggregations_total"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}
