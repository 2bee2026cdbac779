// Package metrics exposes operational counters for the PSI batch services
// and serves them in Prometheus text format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the metrics endpoint on a dedicated address.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given package. The addr may be
// empty, in which case the server is created but never started.
func New(packageName, addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe starts serving the metrics endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// IncOperation counts one accepted protocol operation of the given kind.
func IncOperation(op string) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`psifhe_operations_total{op=%q}`, op)).Inc()
}

// IncRejection counts one rejected operation with its rejection kind.
func IncRejection(op, reason string) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`psifhe_rejections_total{op=%q,reason=%q}`, op, reason)).Inc()
}

// IncDecryptionFinalized counts one successfully finalized decryption.
func IncDecryptionFinalized() {
	vmetrics.GetOrCreateCounter(`psifhe_decryptions_finalized_total`).Inc()
}
