package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/specialistvlad/gridci/internal/runstate"
)

// instanceView is the JSON shape of one instance on the /run endpoint.
type instanceView struct {
	ID       string            `json:"id"`
	Job      string            `json:"job"`
	Matrix   map[string]string `json:"matrix,omitempty"`
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Cause    string            `json:"cause,omitempty"`
	Started  *time.Time        `json:"started_at,omitempty"`
	Finished *time.Time        `json:"finished_at,omitempty"`
}

// statusHandler builds the HTTP surface of the status server: /healthz for
// liveness, /run for a snapshot of the status table.
func (a *App) statusHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	r.Get("/run", func(w http.ResponseWriter, req *http.Request) {
		store := a.store
		if store == nil {
			http.Error(w, "no run in progress", http.StatusServiceUnavailable)
			return
		}

		views := make([]instanceView, 0)
		for _, inst := range store.Snapshot() {
			views = append(views, newInstanceView(inst))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"run_id":    store.RunID(),
			"status":    store.RunStatus().String(),
			"instances": views,
		})
	})

	return r
}

// startStatusServer exposes the run's status table over HTTP while the run
// is in flight.
func (a *App) startStatusServer(ctx context.Context, port int) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: a.statusHandler(),
	}

	go func() {
		a.logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
	return srv
}

// stopStatusServer shuts the status server down gracefully.
func (a *App) stopStatusServer(ctx context.Context, srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Status server shutdown failed", "error", err)
		return
	}
	a.logger.Debug("Status server shut down gracefully.")
}

func newInstanceView(inst runstate.Instance) instanceView {
	v := instanceView{
		ID:     inst.ID,
		Job:    inst.Job,
		Status: inst.Status.String(),
		Cause:  inst.Cause,
	}
	if !inst.Assignment.Empty() {
		v.Matrix = inst.Assignment.Map()
	}
	if inst.Err != nil {
		v.Error = inst.Err.Error()
	}
	if !inst.StartedAt.IsZero() {
		t := inst.StartedAt
		v.Started = &t
	}
	if !inst.FinishedAt.IsZero() {
		t := inst.FinishedAt
		v.Finished = &t
	}
	return v
}
