package health

import (
	"context"
	"net/http"
	"time"

	"github.com/amarastays/backend-villa/internal/common"
)

// Checker reports whether a backing dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// Handler serves liveness and readiness probes.
type Handler struct {
	checkers map[string]Checker
	timeout  time.Duration
}

func NewHandler(checkers map[string]Checker) *Handler {
	return &Handler{checkers: checkers, timeout: 2 * time.Second}
}

// Live always reports success while the process is running.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready probes each registered dependency and fails if any is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checkers))
	healthy := true
	for name, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	common.JSON(w, status, map[string]any{"status": overall, "checks": results})
}
