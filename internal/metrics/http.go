package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usher2/u2dumpsync/internal/index"
	"github.com/usher2/u2dumpsync/internal/logger"
)

// ParamSource - dump state parameters.
type ParamSource interface {
	Params(ctx context.Context) (map[string]string, error)
}

// SummarySource - index counters.
type SummarySource interface {
	Summary() (index.Summary, error)
}

// Status - /status answer.
type Status struct {
	Params map[string]string `json:"params"`
	Index  *index.Summary    `json:"index,omitempty"`
}

type api struct {
	params ParamSource
	index  SummarySource
}

// NewRouter - /metrics, /healthz and /status. idx may be nil.
func NewRouter(m *Metrics, params ParamSource, idx SummarySource) http.Handler {
	a := &api{params: params, index: idx}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Timeout(10*time.Second))

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	r.Get("/healthz", a.health)
	r.Get("/status", a.status)

	return r
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	params, err := a.params.Params(r.Context())
	if err != nil {
		logger.Error.Printf("Can't read params: %s\n", err)
		http.Error(w, "can't read params", http.StatusInternalServerError)

		return
	}

	st := Status{Params: params}

	if a.index != nil {
		if sum, err := a.index.Summary(); err == nil {
			st.Index = &sum
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(st); err != nil {
		logger.Debug.Printf("Can't write status: %s\n", err)
	}
}
