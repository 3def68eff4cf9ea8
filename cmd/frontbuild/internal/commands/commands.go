package commands

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
	"github.com/wolfeidau/frontbuild/internal/logger"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Tracing bool
	Root    string
	Version string
}

// ModeFlag overrides NODE_ENV when set.
type ModeFlag struct {
	Mode string `help:"Build mode, overrides NODE_ENV (development or production)." placeholder:"MODE"`
}

func (m ModeFlag) lookup() buildconfig.LookupFunc {
	return func(key string) (string, bool) {
		if key == buildconfig.ModeEnvVar && m.Mode != "" {
			return m.Mode, true
		}
		return os.LookupEnv(key)
	}
}

// load resolves the root and builds the configuration.
func (g *Globals) load(mode ModeFlag) (*buildconfig.Configuration, string, error) {
	root, err := filepath.Abs(g.Root)
	if err != nil {
		return nil, "", err
	}
	return buildconfig.Load(mode.lookup(), root), root, nil
}

// setup configures the global logger and optional telemetry. The returned func flushes
// telemetry and is always safe to call.
func (g *Globals) setup(ctx context.Context) (zerolog.Logger, func()) {
	l := logger.Setup(g.Debug)
	log.Logger = l

	if !g.Tracing {
		return l, func() {}
	}

	shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
		ServiceName: "frontbuild",
		Version:     g.Version,
		SampleRatio: 1,
	})
	if err != nil {
		l.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		return l, func() {}
	}

	return l, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
