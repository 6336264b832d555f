package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/logger"
	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/screening"
)

const shutdownTimeout = 10 * time.Second

// HealthChecker reports whether a dependency answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server serves one pipeline stage.
type Server struct {
	name       string
	router     chi.Router
	logger     *zap.Logger
	downstream map[string]HealthChecker
}

func newServer(name string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		name:   name,
		router: chi.NewRouter(),
		logger: log.Named(name),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(s.withTrace)
	s.router.Use(s.withLogging)
	s.router.Get(PathHealth, s.handleHealth)

	return s
}

// Name returns the stage the server exposes.
func (s *Server) Name() string {
	return s.name
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server: %w", s.name, err)
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// NewOrchestratorServer exposes the single public entry point. Downstream
// checkers are reported by the health endpoint.
func NewOrchestratorServer(o *pipeline.Orchestrator, downstream map[string]HealthChecker, log *zap.Logger) *Server {
	s := newServer("orchestrator", log)
	s.downstream = downstream

	s.router.Post(PathSubmit, func(w http.ResponseWriter, r *http.Request) {
		var raw screening.RawRequest
		if err := s.decode(w, r, &raw); err != nil {
			s.errorResponse(w, err)
			return
		}

		verdict, err := o.Submit(r.Context(), raw)
		if err != nil {
			s.errorResponse(w, err)
			return
		}

		w.Header().Set(TraceHeader, verdict.TraceID)
		s.jsonResponse(w, http.StatusOK, verdict.Response())
	})

	return s
}

// NewInspectorServer exposes the content inspector.
func NewInspectorServer(i pipeline.Inspector, log *zap.Logger) *Server {
	s := newServer(pipeline.StageInspector, log)

	s.router.Post(PathInspect, func(w http.ResponseWriter, r *http.Request) {
		var in inspectRequest
		if err := s.decode(w, r, &in); err != nil {
			s.errorResponse(w, err)
			return
		}

		inspection, err := i.Inspect(r.Context(), in.Text)
		if err != nil {
			s.errorResponse(w, err)
			return
		}

		s.jsonResponse(w, http.StatusOK, inspection)
	})

	return s
}

// NewScoringServer exposes the scoring engine.
func NewScoringServer(sc pipeline.Scorer, log *zap.Logger) *Server {
	s := newServer(pipeline.StageScoring, log)

	s.router.Post(PathScore, func(w http.ResponseWriter, r *http.Request) {
		var req screening.Request
		if err := s.decode(w, r, &req); err != nil {
			s.errorResponse(w, err)
			return
		}

		result, err := sc.Score(r.Context(), &req)
		if err != nil {
			s.errorResponse(w, err)
			return
		}

		s.jsonResponse(w, http.StatusOK, result)
	})

	return s
}

// NewEnforcerServer exposes the decision enforcer.
func NewEnforcerServer(e pipeline.Enforcer, log *zap.Logger) *Server {
	s := newServer(pipeline.StageEnforcer, log)

	s.router.Post(PathEnforce, func(w http.ResponseWriter, r *http.Request) {
		var in enforceRequest
		if err := s.decode(w, r, &in); err != nil {
			s.errorResponse(w, err)
			return
		}
		if in.Request == nil || in.Result == nil {
			s.errorResponse(w, &BadRequest{Err: errors.New("request and result are required")})
			return
		}

		verdict, err := e.Enforce(r.Context(), in.Request, in.Result)
		if err != nil {
			s.errorResponse(w, err)
			return
		}

		s.jsonResponse(w, http.StatusOK, verdict)
	})

	return s
}

// NewAuditServer exposes the audit log and its read path.
func NewAuditServer(a *auditlog.Log, log *zap.Logger) *Server {
	s := newServer(pipeline.StageAudit, log)

	s.router.Post(PathLog, func(w http.ResponseWriter, r *http.Request) {
		var in logRequest
		if err := s.decode(w, r, &in); err != nil {
			s.errorResponse(w, err)
			return
		}
		if in.Verdict == nil {
			s.errorResponse(w, &BadRequest{Err: errors.New("verdict is required")})
			return
		}

		id, err := a.Append(r.Context(), in.Verdict, in.Request)
		if err != nil {
			s.errorResponse(w, err)
			return
		}

		s.jsonResponse(w, http.StatusCreated, logResponse{AuditID: id})
	})

	s.router.Get(PathRecords, func(w http.ResponseWriter, r *http.Request) {
		records, err := a.Records(r.Context())
		if err != nil {
			s.errorResponse(w, err)
			return
		}

		s.jsonResponse(w, http.StatusOK, records)
	})

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := Health{Status: "ok", Service: s.name}
	status := http.StatusOK

	if len(s.downstream) > 0 {
		health.Downstream = make(map[string]string, len(s.downstream))
		for name, checker := range s.downstream {
			if err := checker.Health(r.Context()); err != nil {
				health.Downstream[name] = err.Error()
				health.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			health.Downstream[name] = "ok"
		}
	}

	s.jsonResponse(w, status, health)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyLength)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(target); err != nil {
		return &BadRequest{Err: err}
	}

	return nil
}

// withTrace carries the caller's trace id into the request context and echoes
// it back.
func (s *Server) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(TraceHeader); id != "" {
			w.Header().Set(TraceHeader, id)
			r = r.WithContext(screening.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String(logger.FieldTraceID, screening.TraceID(r.Context())),
		)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.jsonResponse(w, status, errorBody{Error: err.Error()})
}
