// Package session runs capture triggers end to end: resolve the target,
// compose, persist, then the optional follow-ups and the finish action.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"finalshot/src/clipboard"
	"finalshot/src/compositor"
	"finalshot/src/config"
	"finalshot/src/gui"
	"finalshot/src/history"
	"finalshot/src/imageio"
	"finalshot/src/logutil"
	"finalshot/src/notification"
	"finalshot/src/overlay"
	"finalshot/src/screenshot"
	"finalshot/src/window"
)

// ErrBusy is returned when a trigger arrives while another capture, or an
// open selector, is still running.
var ErrBusy = errors.New("a capture is already in progress")

// Trigger names, as recorded in history and used by hotkeys and the tray.
const (
	TriggerFull   = "full"
	TriggerRegion = "region"
	TriggerWindow = "window"
	TriggerSelect = "select"
)

type Composer interface {
	Compose(ctx context.Context, target screenshot.Region, includeCursor bool) (*image.RGBA, error)
}

type SaveFunc func(path string, img image.Image, quality int) (imageio.Format, error)

// SurfaceFactory opens the overlay that covers bounds.
type SurfaceFactory func(bounds screenshot.Region) (overlay.Surface, error)

// FinishFunc launches the configured finish action.
type FinishFunc func(ctx context.Context, command string) error

// Result describes a persisted capture.
type Result struct {
	Trigger string
	Path    string
	Format  imageio.Format
	Region  screenshot.Region
}

// Service owns the capture pipeline. Settings are passed per call so a
// reload never changes a capture already in flight.
type Service struct {
	Composer   Composer
	Topology   screenshot.Topology
	Windows    *window.Finder
	Save       SaveFunc
	NewSurface SurfaceFactory
	Finish     FinishFunc
	Clipboard  func(image.Image) error
	Notifier   notification.Notifier
	// History is optional; nil disables the ledger.
	History *history.Store

	busy atomic.Bool
}

// NewSystem wires the live screen, native windows and overlay.
func NewSystem(store *history.Store, n notification.Notifier) *Service {
	sys := screenshot.System{}
	return &Service{
		Composer: compositor.NewSystem(),
		Topology: sys,
		Windows:  window.NewFinder(window.NewSystem()),
		Save:     imageio.Save,
		NewSurface: func(bounds screenshot.Region) (overlay.Surface, error) {
			return gui.NewSurface(gui.Options{Bounds: bounds})
		},
		Finish:    RunFinishAction,
		Clipboard: clipboard.WriteImage,
		Notifier:  n,
		History:   store,
	}
}

// Busy reports whether a capture is running.
func (s *Service) Busy() bool { return s.busy.Load() }

// CaptureFullScreen captures the union of all displays.
func (s *Service) CaptureFullScreen(ctx context.Context, cfg config.Settings) (Result, error) {
	return s.run(ctx, cfg, TriggerFull, cfg.Validate, func() (screenshot.Region, error) {
		return screenshot.VirtualBounds(s.Topology.Displays()), nil
	})
}

// CaptureRegion captures the predefined rectangle from cfg.
func (s *Service) CaptureRegion(ctx context.Context, cfg config.Settings) (Result, error) {
	return s.run(ctx, cfg, TriggerRegion, cfg.ValidatePredefined, func() (screenshot.Region, error) {
		return cfg.PredefinedRegion(), nil
	})
}

// CaptureRect captures an explicit rectangle.
func (s *Service) CaptureRect(ctx context.Context, cfg config.Settings, r screenshot.Region) (Result, error) {
	return s.run(ctx, cfg, TriggerRegion, cfg.Validate, func() (screenshot.Region, error) {
		return r, nil
	})
}

// CaptureWindow captures the current bounds of the window matching title.
func (s *Service) CaptureWindow(ctx context.Context, cfg config.Settings, title string) (Result, error) {
	return s.run(ctx, cfg, TriggerWindow, cfg.Validate, func() (screenshot.Region, error) {
		info, err := s.Windows.Find(title)
		if err != nil {
			return screenshot.Region{}, err
		}
		return info.Bounds, nil
	})
}

// CaptureInteractive opens the selector and captures what the user drags.
// The service stays busy until the overlay is gone.
func (s *Service) CaptureInteractive(ctx context.Context, cfg config.Settings) (Result, error) {
	log := logutil.WithComponent("session").With().Str("trigger", TriggerSelect).Logger()
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("capture skipped")
		return Result{}, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		log.Info().Msg("trigger rejected; capture in progress")
		return Result{}, ErrBusy
	}
	defer s.busy.Store(false)

	bounds := screenshot.VirtualBounds(s.Topology.Displays())
	surface, err := s.NewSurface(bounds)
	if err != nil {
		log.Error().Err(err).Msg("failed to open selector")
		return Result{}, fmt.Errorf("open selector: %w", err)
	}

	var res Result
	sel := &overlay.Session{
		Surface: surface,
		MinSize: cfg.MinSelection,
		Capture: func(ctx context.Context, abs screenshot.Region) error {
			var err error
			res, err = s.persist(ctx, cfg, TriggerSelect, abs)
			return err
		},
		OnComplete: func(screenshot.Region) { s.finish(ctx, cfg) },
	}
	if _, err := sel.Run(ctx); err != nil {
		if errors.Is(err, overlay.ErrCancelled) {
			log.Info().Err(err).Msg("selection produced no capture")
		}
		return Result{}, err
	}
	return res, nil
}

func (s *Service) run(ctx context.Context, cfg config.Settings, trigger string, validate func() error, resolve func() (screenshot.Region, error)) (Result, error) {
	log := logutil.WithComponent("session").With().Str("trigger", trigger).Logger()
	if err := validate(); err != nil {
		log.Warn().Err(err).Msg("capture skipped")
		return Result{}, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		log.Info().Msg("trigger rejected; capture in progress")
		return Result{}, ErrBusy
	}
	defer s.busy.Store(false)

	target, err := resolve()
	if err != nil {
		log.Warn().Err(err).Msg("could not resolve capture target")
		return Result{}, err
	}
	res, err := s.persist(ctx, cfg, trigger, target)
	if err != nil {
		return Result{}, err
	}
	s.finish(ctx, cfg)
	return res, nil
}

// persist composes target and writes it to cfg.SavePath, then runs the
// optional clipboard, notification and history steps. Only compose and
// save failures are returned.
func (s *Service) persist(ctx context.Context, cfg config.Settings, trigger string, target screenshot.Region) (Result, error) {
	log := logutil.WithComponent("session").With().Str("trigger", trigger).Logger()

	img, err := s.Composer.Compose(ctx, target, cfg.ShowCursor)
	if err != nil {
		log.Warn().Err(err).Stringer("target", target).Msg("capture failed")
		return Result{}, err
	}
	format, err := s.Save(cfg.SavePath, img, cfg.JPEGQuality)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.SavePath).Msg("failed to save capture")
		return Result{}, err
	}
	res := Result{Trigger: trigger, Path: cfg.SavePath, Format: format, Region: target}
	log.Info().Str("path", res.Path).Stringer("format", format).Stringer("region", target).Msg("capture saved")

	if cfg.CopyToClipboard && s.Clipboard != nil {
		if err := s.Clipboard(img); err != nil {
			log.Warn().Err(err).Msg("failed to copy capture to clipboard")
		}
	}
	if cfg.Notify && s.Notifier != nil {
		s.Notifier.Notify(notification.CaptureSaved(res.Path, target.Width, target.Height))
	}
	if s.History != nil {
		rec := &history.Capture{
			Trigger: trigger,
			Path:    res.Path,
			Format:  format.String(),
			X:       target.X,
			Y:       target.Y,
			Width:   target.Width,
			Height:  target.Height,
		}
		if err := s.History.Record(rec); err != nil {
			log.Warn().Err(err).Msg("failed to record capture history")
		}
	}
	return res, nil
}

func (s *Service) finish(ctx context.Context, cfg config.Settings) {
	if cfg.FinishAction == "" || s.Finish == nil {
		return
	}
	if err := s.Finish(ctx, cfg.FinishAction); err != nil {
		logutil.WithComponent("session").Warn().Err(err).Str("command", cfg.FinishAction).Msg("finish action failed")
	}
}
