// Package admin serves the local-only HTTP endpoints next to the catalog
// websocket: health, metrics, catalog state and on-demand reloads.
package admin

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"baseparts.ai/internal/logging"
	"baseparts.ai/internal/protocol"
	"baseparts.ai/internal/sim/baseparts"
)

type Server struct {
	holder *baseparts.Holder
	load   func() (*baseparts.Registry, error)
	log    *zap.Logger

	// AfterReload runs after every successful reload; its error is reported
	// but the new registry stays published.
	AfterReload func(*baseparts.Registry) error

	reloads  atomic.Uint64
	failures atomic.Uint64
}

func NewServer(h *baseparts.Holder, load func() (*baseparts.Registry, error), logger *zap.Logger) *Server {
	return &Server{
		holder: h,
		load:   load,
		log:    logging.OrNop(logger).Named("admin"),
	}
}

// Register mounts the handlers. Admin routes are only mounted when
// enableAdmin is set.
func (s *Server) Register(mux *http.ServeMux, enableAdmin bool) {
	mux.HandleFunc("/healthz", s.HealthHandler())
	mux.HandleFunc("/metrics", s.MetricsHandler())
	if !enableAdmin {
		s.log.Info("admin endpoints disabled")
		return
	}
	mux.HandleFunc("/admin/v1/state", s.StateHandler())
	mux.HandleFunc("/admin/v1/reload", s.ReloadHandler())
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if s.holder.Current() == nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_, _ = rw.Write([]byte("not loaded"))
			return
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	}
}

func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		reg := s.holder.Current()
		rw.Header().Set("Content-Type", "application/json")
		if reg == nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "code": protocol.ErrNotLoaded})
			return
		}
		resp := struct {
			ProtocolVersion string                  `json:"protocol_version"`
			Catalog         protocol.CatalogSummary `json:"catalog"`
			Ores            int                     `json:"ores"`
			OreFloors       int                     `json:"ore_floors"`
		}{
			ProtocolVersion: protocol.Version,
			Catalog:         protocol.Summary(reg),
			Ores:            len(reg.Ores),
			OreFloors:       len(reg.OreFloors),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// ReloadHandler rebuilds the registry from disk. A failed load leaves the
// previous registry published.
func (s *Server) ReloadHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")

		reg, err := s.holder.Reload(s.load)
		if err != nil {
			s.failures.Add(1)
			s.log.Error("reload failed", zap.Error(err))
			rw.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		s.reloads.Add(1)

		resp := map[string]any{"ok": true, "catalog": protocol.Summary(reg)}
		if s.AfterReload != nil {
			if err := s.AfterReload(reg); err != nil {
				s.log.Warn("post-reload hook failed", zap.Error(err))
				resp["warning"] = err.Error()
			}
		}
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) MetricsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		st := s.holder.Current().Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP baseparts_parts Indexed base parts by class.\n")
		fmt.Fprintf(rw, "# TYPE baseparts_parts gauge\n")
		fmt.Fprintf(rw, "baseparts_parts{class=%q} %d\n", baseparts.ClassCore.String(), st.Cores)
		fmt.Fprintf(rw, "baseparts_parts{class=%q} %d\n", baseparts.ClassIndependent.String(), st.Independent)
		fmt.Fprintf(rw, "baseparts_parts{class=%q} %d\n", baseparts.ClassRequired.String(), st.Required)

		fmt.Fprintf(rw, "# HELP baseparts_resources Distinct required resources.\n")
		fmt.Fprintf(rw, "# TYPE baseparts_resources gauge\n")
		fmt.Fprintf(rw, "baseparts_resources %d\n", st.Resources)

		fmt.Fprintf(rw, "# HELP baseparts_source_conflicts Parts with more than one source resource.\n")
		fmt.Fprintf(rw, "# TYPE baseparts_source_conflicts gauge\n")
		fmt.Fprintf(rw, "baseparts_source_conflicts %d\n", st.Conflicts)

		fmt.Fprintf(rw, "# HELP baseparts_subscribers Open reload subscriptions.\n")
		fmt.Fprintf(rw, "# TYPE baseparts_subscribers gauge\n")
		fmt.Fprintf(rw, "baseparts_subscribers %d\n", s.holder.Subscribers())

		fmt.Fprintf(rw, "# HELP baseparts_reloads_total Reload attempts by outcome.\n")
		fmt.Fprintf(rw, "# TYPE baseparts_reloads_total counter\n")
		fmt.Fprintf(rw, "baseparts_reloads_total{outcome=%q} %d\n", "ok", s.reloads.Load())
		fmt.Fprintf(rw, "baseparts_reloads_total{outcome=%q} %d\n", "error", s.failures.Load())
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
