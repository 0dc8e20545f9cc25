package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/internal/scheduler"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// Runs exposes the last outcome of every analysis context.
type Runs interface {
	Statuses() []scheduler.Status
	Status(key string) (scheduler.Status, bool)
}

// Server serves the status and operator API of the analysis service.
type Server struct {
	Runs     Runs
	Flags    ports.FlagStore
	Gatherer prometheus.Gatherer
	Version  string
	Logger   *slog.Logger
	Clock    func() time.Time
}

// NewHandler creates the HTTP handler of s.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	if s.Gatherer == nil {
		s.Gatherer = prometheus.DefaultGatherer
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Get("/info", s.info)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/machines", func(r chi.Router) {
		r.Get("/", s.listMachines)
		r.Get("/{id}", s.getMachine)
	})
	r.Route("/flags", func(r chi.Router) {
		r.Get("/", s.listFlags)
		r.Get("/{key}", s.getFlag)
		r.Put("/{key}", s.putFlag)
		r.Delete("/{key}", s.deleteFlag)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"app": "cadence", "version": s.Version})
}

func (s *Server) listMachines(w http.ResponseWriter, _ *http.Request) {
	if s.Runs == nil {
		s.writeJSON(w, http.StatusOK, []scheduler.Status{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.Runs.Statuses())
}

// getMachine accepts a machine id or "global".
func (s *Server) getMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := scheduler.GlobalKey
	if id != "global" {
		n, err := strconv.Atoi(id)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid machine id", http.StatusBadRequest)
			return
		}
		key = scheduler.MachineKey(n)
	}
	if s.Runs == nil {
		http.Error(w, "No run recorded", http.StatusNotFound)
		return
	}
	st, ok := s.Runs.Status(key)
	if !ok {
		http.Error(w, "No run recorded", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) listFlags(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	var flags []domain.Flag
	err := s.Flags.View(r.Context(), func(tx ports.FlagReader) error {
		var err error
		flags, err = tx.List(r.Context(), prefix)
		return err
	})
	if err != nil {
		s.fail(w, "List flags failed", err)
		return
	}
	if flags == nil {
		flags = []domain.Flag{}
	}
	s.writeJSON(w, http.StatusOK, flags)
}

func (s *Server) getFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var flag *domain.Flag
	err := s.Flags.View(r.Context(), func(tx ports.FlagReader) error {
		var err error
		flag, err = tx.Lookup(r.Context(), key)
		return err
	})
	if errors.Is(err, domain.ErrFlagNotFound) {
		http.Error(w, "Flag not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, "Lookup flag failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, flag)
}

// putFlag stores a flag. The body, if any, is the flag value.
func (s *Server) putFlag(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	flag := domain.Flag{
		Key:       chi.URLParam(r, "key"),
		Value:     strings.TrimSpace(string(body)),
		UpdatedAt: s.Clock().UTC(),
	}
	err = s.Flags.Update(r.Context(), func(tx ports.FlagWriter) error {
		return tx.Save(r.Context(), flag)
	})
	if err != nil {
		s.fail(w, "Save flag failed", err)
		return
	}
	s.Logger.Info("Flag saved", "key", flag.Key)
	s.writeJSON(w, http.StatusOK, flag)
}

func (s *Server) deleteFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	err := s.Flags.Update(r.Context(), func(tx ports.FlagWriter) error {
		return tx.Delete(r.Context(), key)
	})
	if err != nil {
		s.fail(w, "Delete flag failed", err)
		return
	}
	s.Logger.Info("Flag deleted", "key", key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.Logger.Error(msg, "err", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Encode response failed", "err", err)
	}
}
