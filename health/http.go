package health

import (
	"context"
	"encoding/json"
	"net/http"
)

// Reporter produces health reports. *Aggregator implements it.
type Reporter interface {
	GetHealth(ctx context.Context) Report
}

var _ Reporter = (*Aggregator)(nil)

// Handler returns the health endpoint. It always responds 200 with the
// report; degraded health is described in the body, never by the status code.
func Handler(r Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		report := r.GetHealth(req.Context())

		body, err := json.Marshal(report)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// LivenessHandler returns an HTTP handler for liveness probes.
// It only proves the process is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// It responds 503 unless Report.Ready holds.
func ReadinessHandler(r Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		report := r.GetHealth(req.Context())

		w.Header().Set("Content-Type", "text/plain")
		if report.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNHEALTHY"))
	}
}

// Endpoint paths registered by RegisterHandlers.
const (
	PathHealth    = "/api/v1/health"
	PathLiveness  = "/healthz"
	PathReadiness = "/readyz"
)

// RegisterHandlers registers the health, liveness and readiness handlers.
func RegisterHandlers(mux *http.ServeMux, r Reporter) {
	mux.HandleFunc("GET "+PathHealth, Handler(r))
	mux.HandleFunc("GET "+PathLiveness, LivenessHandler())
	mux.HandleFunc("GET "+PathReadiness, ReadinessHandler(r))
}
