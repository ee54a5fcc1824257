package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"plant-monitor/internal/utils"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// DBCheck runs SELECT 1 against db.
func DBCheck(db *sql.DB) HealthCheck {
	return func(ctx context.Context) error {
		var ok int
		return db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
	}
}

func handleHealthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				slog.Error("health check failed", "check", name, "error", err)
				utils.WriteError(w, http.StatusServiceUnavailable, name+" unavailable")
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
