package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/pkg/browser"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/logger"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
)

type Config struct {
	// Listen address, port 0 picks a free port
	Listen string
	// Directory served as static files
	Directory string
	// Open the default browser once the server answers
	Open bool
	// Allowed CORS origins, empty allows any origin
	CORSOrigins []string
	// How long to wait for the server to answer before giving up on opening the browser
	OpenTimeout time.Duration
}

type Server struct {
	cfg    Config
	logger zerolog.Logger
	open   func(url string) error
	ready  chan string
}

func New(cfg Config, logger zerolog.Logger) *Server {
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 10 * time.Second
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		open:   browser.OpenURL,
		ready:  make(chan string, 1),
	}
}

// Ready receives the server URL once it is listening.
func (s *Server) Ready() <-chan string {
	return s.ready
}

// Handler serves the static directory uncached, gzip compressed and with CORS headers.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	files := http.FileServer(http.Dir(s.cfg.Directory))
	metrics := telemetry.GetMetrics()

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.Add(r.Context(), 1)
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})

	h = gzhttp.GzipHandler(h)
	h = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler(h)

	return logger.Requests(s.logger)(h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}

	url := fmt.Sprintf("http://%s/", ln.Addr().String())
	s.logger.Info().Str("url", url).Str("directory", s.cfg.Directory).Msg("Dev server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.ready <- url

	if s.cfg.Open {
		go s.openWhenReady(ctx, url)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown dev server: %w", err)
	}
	return nil
}

func (s *Server) openWhenReady(ctx context.Context, url string) {
	if err := WaitReady(ctx, url, s.cfg.OpenTimeout); err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Dev server not ready, not opening browser")
		return
	}
	if err := s.open(url); err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
	}
}

// WaitReady polls url with exponential backoff until it answers or timeout elapses.
func WaitReady(ctx context.Context, url string, timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	_, err := backoff.Retry(ctx, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		resp.Body.Close()
		return resp.StatusCode, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(timeout))

	return err
}
