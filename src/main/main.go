package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"finalshot/src/config"
	"finalshot/src/eventloop"
	"finalshot/src/hotkey"
	"finalshot/src/logutil"
	"finalshot/src/notification"
	"finalshot/src/runtimeinit"
	"finalshot/src/screenshot"
	"finalshot/src/session"
	"finalshot/src/singleinstance"
	"finalshot/src/tray"
	"finalshot/src/trigger"
)

type mainOptions struct {
	configFile string
	envFile    string
	verbose    bool
}

func main() {
	// systray needs the main goroutine on its own OS thread.
	runtime.LockOSThread()

	cmd := newRootCmd(&mainOptions{})
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "finalshot",
		Short:         "Resident screen capture with hotkeys and a tray menu",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(cmd.Context(), *opts, config.LoadOptions{
				EnvFile:    opts.envFile,
				ConfigFile: opts.configFile,
				Flags:      cmd.Flags(),
			})
		},
	}
	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML configuration file, watched for changes")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", ".env file (default: next to the executable or $"+config.EnvFileEnvVar+")")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "mirror the diagnostic log to stderr")
	config.BindFlags(cmd.Flags())
	return cmd
}

func runResident(parent context.Context, opts mainOptions, loadOpts config.LoadOptions) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{LoadOptions: loadOpts, Console: opts.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()
	log := logutil.WithComponent("main")
	logMonitorConfiguration()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	instance := singleinstance.NewServer()
	if err := instance.Start(ctx); err != nil {
		if errors.Is(err, singleinstance.ErrAlreadyRunning) {
			return err
		}
		log.Warn().Err(err).Msg("command delegation unavailable")
		instance = nil
	} else {
		defer instance.Close()
	}

	cfg := rt.Settings
	resting := tooltipFor(cfg)

	var loop *eventloop.Loop
	trayIcon := tray.New(tray.Config{
		Title:    "FinalShot",
		Tooltip:  resting,
		Items:    trayItems(),
		OnSelect: func(name string) { loop.PostName(name) },
		OnExit:   cancel,
	})

	svc := session.NewSystem(rt.History, notification.Multi{notification.Log{}, trayIcon})
	loop = eventloop.New(svc, cfg)
	loop.SetTooltip(trayIcon.SetTooltip, resting)

	if instance != nil {
		go func() {
			if err := singleinstance.Serve(ctx, instance, delegateHandler(loop.Claim)); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("command delegation stopped")
			}
		}()
	}

	var rebinder hotkeyRebinder
	hotkeys, err := hotkey.Listen(cfg.Hotkeys(), loop.PostName)
	if err != nil {
		log.Warn().Err(err).Msg("global hotkeys unavailable; use the tray menu")
	} else {
		defer hotkeys.Stop()
		rebinder = hotkeys
	}

	loop.OnSettings = func(next config.Settings) {
		applyReload(next, rebinder, loop, trayIcon.SetTooltip)
	}
	if err := loop.WatchConfig(loadOpts); err != nil {
		log.Warn().Err(err).Msg("config file will not be watched")
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
		case <-ctx.Done():
		}
		cancel()
		trayIcon.Quit()
	}()

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	trayIcon.Run()
	cancel()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("event loop stopped")
	}
	log.Info().Msg("FinalShot exiting")
	return nil
}

type hotkeyRebinder interface {
	Rebind(combos map[string]string) error
}

// applyReload carries reloaded hotkeys into the hook and the tray tooltip.
// Bindings that fail to parse leave the previous ones active.
func applyReload(cfg config.Settings, hk hotkeyRebinder, loop *eventloop.Loop, setTooltip func(string)) {
	if hk != nil {
		if err := hk.Rebind(cfg.Hotkeys()); err != nil {
			logutil.WithComponent("main").Warn().Err(err).Msg("hotkeys not rebound; keeping previous bindings")
		}
	}
	resting := tooltipFor(cfg)
	loop.SetRestingTooltip(resting)
	if !loop.Busy() && setTooltip != nil {
		setTooltip(resting)
	}
}

// delegateHandler queues bang commands sent by finalshot-cli.
// A command that cannot run right now is refused, not queued.
func delegateHandler(claim func(trigger.Trigger) error) singleinstance.Handler {
	return func(command string) error {
		t, err := trigger.Parse(command)
		if err != nil {
			return err
		}
		return claim(t)
	}
}

func trayItems() []tray.Item {
	return []tray.Item{
		{Name: session.TriggerFull, Title: "Capture full screen", Tooltip: "Capture every display"},
		{Name: session.TriggerRegion, Title: "Capture predefined region", Tooltip: "Capture the configured rectangle"},
		{Name: session.TriggerSelect, Title: "Select region...", Tooltip: "Drag a rectangle to capture"},
	}
}

// tooltipFor lists the hotkeys, in a stable order, in the resting tooltip.
func tooltipFor(cfg config.Settings) string {
	keys := cfg.Hotkeys()
	var parts []string
	for _, name := range []string{session.TriggerFull, session.TriggerRegion, session.TriggerSelect} {
		if combo, ok := keys[name]; ok {
			parts = append(parts, name+" "+combo)
		}
	}
	if len(parts) == 0 {
		return "FinalShot"
	}
	return "FinalShot - " + strings.Join(parts, ", ")
}

func logDisplays() {
	log := logutil.WithComponent("main")
	displays := screenshot.Displays()
	for _, d := range displays {
		log.Info().Str("display", d.ID).Stringer("bounds", d.Bounds).Msg("display detected")
	}
	log.Info().Stringer("virtual", screenshot.VirtualBounds(displays)).Int("count", len(displays)).Msg("virtual screen")
}

// normalizeLegacyArgs maps single-dash long flags (-save-path) to the
// double-dash form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' {
			name, _, _ := strings.Cut(arg[1:], "=")
			if len(name) > 1 {
				normalized[i] = "-" + arg
			}
		}
	}
	return normalized
}
