package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jpodivin/mpm/internal/health"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string         `json:"status"` // "ok" or "degraded"
	Version string         `json:"version,omitempty"`
	Uptime  string         `json:"uptime"`
	Lookup  *health.Status `json:"lookup,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 when the lookup program was found by the last check, 503 when
// it was not. Before the first check the gateway reports ok.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: g.version,
			Uptime:  time.Since(g.startedAt).Round(time.Second).String(),
		}

		if g.status != nil {
			st := g.status.Status()
			resp.Lookup = &st
			if st.Checked() && !st.Available {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
