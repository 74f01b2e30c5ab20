package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bondsim/internal/log"
	"bondsim/internal/middleware/ratelimit"
	"bondsim/internal/middleware/security"
	"bondsim/internal/middleware/trace"
	"bondsim/internal/report"
	"bondsim/internal/report/xlsx"
	"bondsim/internal/services"
	appweb "bondsim/web"
)

// Options configures the server. Simulations is required.
type Options struct {
	Simulations *services.SimulationService

	// Reports serves generated workbooks; nil disables downloads.
	Reports *xlsx.Writer

	Logger             *log.Logger
	Currency           string
	PublicBaseURL      string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	sims     *services.SimulationService
	reports  *xlsx.Writer
	currency string
	baseURL  string

	templates *template.Template

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	currency := opts.Currency
	if currency == "" {
		currency = report.DefaultCurrency
	}

	s := &Server{
		sims:     opts.Simulations,
		reports:  opts.Reports,
		currency: currency,
		baseURL:  opts.PublicBaseURL,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost},
		}),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "component", log.ComponentHTTP, "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "component", log.ComponentHTTP, "error", err)
	}
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /simulate/", s.handleSimulate)
	mux.HandleFunc("/simulate/", methodNotAllowed(http.MethodPost))
	mux.HandleFunc("GET /simulate/download/", s.handleDownload)
	mux.Handle("GET /reports/{name}", security.StaticAssetMiddleware(3600)(http.HandlerFunc(s.handleReport)))

	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/summary", s.handleRunSummary)
	mux.HandleFunc("POST /runs/{id}/export", s.handleRunExport)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = log.Middleware(logger, trace.RequestID)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func methodNotAllowed(allowed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError(allowed).Write(w)
	}
}
