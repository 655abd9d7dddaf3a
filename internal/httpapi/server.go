// Package httpapi exposes a small read-only REST surface alongside the TCP
// chat listener: health, room listing, connection/message metrics, and
// vault-file retrieval. Built on labstack/echo, matching the teacher's
// NewAPIServer/Run(ctx, addr) shape.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
)

// RoomSummary is one row of the /rooms listing.
type RoomSummary struct {
	Name             string `json:"name"`
	Online           int    `json:"online"`
	WhitelistEnabled bool   `json:"whitelist_enabled"`
}

// Metrics is the snapshot returned by /metrics.
type Metrics struct {
	Connections int   `json:"connections"`
	Rooms       int   `json:"rooms"`
	Messages    int64 `json:"messages"`
	UptimeS     int64 `json:"uptime_seconds"`
}

// DataSource is the read-only view the API server needs from the running
// chat server. Implemented by *main.Server in the root package.
type DataSource interface {
	RoomSummaries() []RoomSummary
	Metrics() Metrics
}

// Server is the admin/status HTTP API.
type Server struct {
	echo     *echo.Echo
	src      DataSource
	dataDir  string
	startedAt time.Time
}

// New constructs an API server reading from src, serving vault files out of
// dataDir/vault/{users,rooms}.
func New(src DataSource, dataDir string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, src: src, dataDir: dataDir, startedAt: time.Now()}

	e.GET("/healthz", s.handleHealthz)
	e.GET("/rooms", s.handleRooms)
	e.GET("/metrics", s.handleMetrics)
	e.GET("/vault/users/:file", s.handleVaultUser)
	e.GET("/vault/rooms/:file", s.handleVaultRoom)

	return s
}

// Run starts the HTTP listener; it blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, s.src.RoomSummaries())
}

func (s *Server) handleMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.src.Metrics())
}

func (s *Server) handleVaultUser(c echo.Context) error {
	return s.serveVaultFile(c, "users")
}

func (s *Server) handleVaultRoom(c echo.Context) error {
	return s.serveVaultFile(c, "rooms")
}

// serveVaultFile serves a vault export file by basename, rejecting any
// path traversal by requiring the name's base to equal the request param
// and refusing "." and "..".
func (s *Server) serveVaultFile(c echo.Context, kind string) error {
	name := c.Param("file")
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file name")
	}
	path := filepath.Join(s.dataDir, "vault", kind, name)
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "vault file not found")
	}
	return c.File(path)
}
