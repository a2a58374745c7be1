package runtimeinit

import (
	"errors"
	"fmt"

	"finalshot/src/clipboard"
	"finalshot/src/config"
	"finalshot/src/dpi"
	"finalshot/src/history"
	"finalshot/src/logutil"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Console mirrors the diagnostic log to stderr.
	Console bool
	// SkipDPI leaves the process DPI awareness untouched (tests).
	SkipDPI bool
}

// Runtime is what the entry points need after start-up.
type Runtime struct {
	Settings config.Settings
	// History is nil when no history path is configured or it failed to open.
	History *history.Store
}

func (r *Runtime) Close() {
	if r.History != nil {
		_ = r.History.Close()
	}
	logutil.Close()
}

// Bootstrap loads configuration, configures logging and prepares the
// optional subsystems. Only a configuration error is fatal; a missing save
// path is not, since every trigger reports it on its own.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logutil.Setup(logutil.Options{
		Enabled: cfg.DebugLog,
		Path:    cfg.DebugLogPath,
		Level:   cfg.LogLevel,
		Console: opts.Console,
	})
	log := logutil.WithComponent("runtimeinit")

	if !opts.SkipDPI {
		dpi.EnableProcessAwareness()
	}

	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("captures will be skipped until a save path is configured")
	}

	if cfg.CopyToClipboard {
		if err := clipboard.Init(); err != nil {
			log.Warn().Err(err).Msg("clipboard unavailable; copies will be skipped")
		}
	}

	rt := &Runtime{Settings: cfg}
	store, err := history.Open(cfg.HistoryPath)
	switch {
	case errors.Is(err, history.ErrDisabled):
	case err != nil:
		log.Warn().Err(err).Str("path", cfg.HistoryPath).Msg("capture history unavailable")
	default:
		rt.History = store
	}

	log.Info().
		Str("save_path", cfg.SavePath).
		Bool("show_cursor", cfg.ShowCursor).
		Int("jpeg_quality", cfg.JPEGQuality).
		Msg("FinalShot initialized")
	return rt, nil
}
