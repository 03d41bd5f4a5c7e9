package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Pinger is the part of *pgxpool.Pool the readiness check uses.
type Pinger interface {
	Ping(ctx context.Context) error
	Stat() *pgxpool.Stat
}

// Connections summarises pool usage for the readiness report.
type Connections struct {
	Open   int32 `json:"open"`
	InUse  int32 `json:"in_use"`
	Idle   int32 `json:"idle"`
	Limit  int32 `json:"limit"`
	Waited int64 `json:"waited"`
}

type readiness struct {
	Status      string       `json:"status"`
	Database    string       `json:"database"`
	Error       string       `json:"error,omitempty"`
	Connections *Connections `json:"connections,omitempty"`
}

func connectionsFrom(stat *pgxpool.Stat) *Connections {
	if stat == nil {
		return nil
	}
	return &Connections{
		Open:   stat.TotalConns(),
		InUse:  stat.AcquiredConns(),
		Idle:   stat.IdleConns(),
		Limit:  stat.MaxConns(),
		Waited: stat.EmptyAcquireCount(),
	}
}

// LivenessHandler answers as long as the process serves HTTP.
func LivenessHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HealthHandler is the readiness probe: 200 when the database answers a
// ping within two seconds, 503 otherwise.
func HealthHandler(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		report := readiness{Status: "ok", Database: "up"}
		code := http.StatusOK
		if err := db.Ping(ctx); err != nil {
			report = readiness{Status: "degraded", Database: "down", Error: err.Error()}
			code = http.StatusServiceUnavailable
		}
		report.Connections = connectionsFrom(db.Stat())
		return c.JSON(code, report)
	}
}
