// Package trigger parses host commands into capture triggers and runs them.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"finalshot/src/config"
	"finalshot/src/logutil"
	"finalshot/src/session"
)

// ErrUnknownCommand is returned by Parse for anything it does not recognise.
var ErrUnknownCommand = errors.New("unknown capture command")

type Kind int

const (
	Full Kind = iota + 1
	Region
	Window
	Select
)

func (k Kind) String() string {
	switch k {
	case Full:
		return session.TriggerFull
	case Region:
		return session.TriggerRegion
	case Window:
		return session.TriggerWindow
	case Select:
		return session.TriggerSelect
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Trigger is one parsed request.
type Trigger struct {
	Kind  Kind
	Title string
	// SkipFinish suppresses the finish action for this capture.
	SkipFinish bool
}

const windowPrefix = "-ws|"

// Parse understands the bang forms:
//
//	-fs              full screen
//	-ps              predefined region
//	-cs              interactive selection
//	-ws|<title>      window by title
//	ExecuteBatch N   1 full screen, 2 selection without finish action, 3 predefined
//
// Commands are matched case-insensitively.
func Parse(cmd string) (Trigger, error) {
	cmd = strings.TrimSpace(cmd)
	switch {
	case strings.EqualFold(cmd, "-fs"):
		return Trigger{Kind: Full}, nil
	case strings.EqualFold(cmd, "-ps"):
		return Trigger{Kind: Region}, nil
	case strings.EqualFold(cmd, "-cs"):
		return Trigger{Kind: Select}, nil
	case len(cmd) >= len(windowPrefix) && strings.EqualFold(cmd[:len(windowPrefix)], windowPrefix):
		return Trigger{Kind: Window, Title: cmd[len(windowPrefix):]}, nil
	}

	fields := strings.Fields(cmd)
	if len(fields) == 2 && strings.EqualFold(fields[0], "ExecuteBatch") {
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return Trigger{}, fmt.Errorf("batch code %q: %w", fields[1], ErrUnknownCommand)
		}
		switch code {
		case 1:
			return Trigger{Kind: Full}, nil
		case 2:
			return Trigger{Kind: Select, SkipFinish: true}, nil
		case 3:
			return Trigger{Kind: Region}, nil
		}
		return Trigger{}, fmt.Errorf("batch code %d: %w", code, ErrUnknownCommand)
	}
	return Trigger{}, fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
}

// FromName maps a hotkey or menu name (full, region, select) to a Trigger.
func FromName(name string) (Trigger, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case session.TriggerFull:
		return Trigger{Kind: Full}, true
	case session.TriggerRegion:
		return Trigger{Kind: Region}, true
	case session.TriggerSelect:
		return Trigger{Kind: Select}, true
	}
	return Trigger{}, false
}

// Capturer is the set of operations a Trigger can invoke.
type Capturer interface {
	CaptureFullScreen(ctx context.Context, cfg config.Settings) (session.Result, error)
	CaptureRegion(ctx context.Context, cfg config.Settings) (session.Result, error)
	CaptureWindow(ctx context.Context, cfg config.Settings, title string) (session.Result, error)
	CaptureInteractive(ctx context.Context, cfg config.Settings) (session.Result, error)
}

// Dispatch runs t against c. Failures are logged and returned; callers on the
// resident path drop them.
func Dispatch(ctx context.Context, c Capturer, cfg config.Settings, t Trigger) (session.Result, error) {
	log := logutil.WithComponent("trigger")
	if t.SkipFinish {
		cfg.FinishAction = ""
	}

	var (
		res session.Result
		err error
	)
	switch t.Kind {
	case Full:
		res, err = c.CaptureFullScreen(ctx, cfg)
	case Region:
		res, err = c.CaptureRegion(ctx, cfg)
	case Window:
		res, err = c.CaptureWindow(ctx, cfg, t.Title)
	case Select:
		res, err = c.CaptureInteractive(ctx, cfg)
	default:
		err = fmt.Errorf("trigger %s: %w", t.Kind, ErrUnknownCommand)
	}
	if err != nil {
		log.Info().Err(err).Stringer("trigger", t.Kind).Msg("trigger finished without a capture")
	}
	return res, err
}
