package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/dataflow/internal/ctxlog"
)

// healthServer runs the /health HTTP endpoint. Built only when
// Config.HealthcheckPort is positive.
type healthServer struct {
	app    *App
	server *http.Server
}

func newHealthServer(port int, a *App) *healthServer {
	mux := http.NewServeMux()
	h := &healthServer{app: a}
	mux.HandleFunc("/health", h.handle)
	h.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return h
}

func (h *healthServer) handle(w http.ResponseWriter, r *http.Request) {
	status := h.app.Health()
	ctxlog.FromContext(r.Context()).Debug("health check request served", "pending", status.Pending, "empty", status.Empty)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

func (h *healthServer) start(ctx context.Context) {
	h.app.logger.Info("health check server starting", "address", "http://localhost"+h.server.Addr+"/health")
	h.server.BaseContext = func(_ net.Listener) context.Context {
		return ctxlog.WithLogger(ctx, h.app.logger)
	}
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.app.logger.Error("health check server failed", "error", err)
		}
	}()
}

func (h *healthServer) stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		h.app.logger.Error("health check server shutdown failed", "error", err)
	}
}
