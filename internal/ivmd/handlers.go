package ivmd

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

const unknownRoute = "unmatched"

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleAddRecord decodes a JSON object body into a record and adds it to
// the engine, returning the assigned row id (spec §6 add).
func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	id := s.eng.Add(value.FromAny(body))
	recordsAddedTotal.Inc()
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// handleRemoveRecord removes the record named by the {id} path param
// (spec §6 remove; §7 invalid row id returns false rather than erroring).
func (s *Server) handleRemoveRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	removed := s.eng.Remove(id)
	if removed {
		recordsRemovedTotal.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// handleSnapshot returns the demo pipeline's current output (spec §6
// snapshot).
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rows, err := s.eng.Snapshot(s.handle)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	snapshotsServedTotal.Inc()
	out := make([]any, len(rows))
	for i, v := range rows {
		out[i] = v.ToAny()
	}
	writeJSON(w, http.StatusOK, out)
}

// handleStats returns the diagnostic map of spec §6 statistics().
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Statistics())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// metricsMiddleware records per-request HTTP metrics, the ivmd analogue of
// api/metrics.Middleware.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = unknownRoute
		}
		status := strconv.Itoa(ww.Status())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
