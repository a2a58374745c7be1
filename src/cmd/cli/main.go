package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"finalshot/src/config"
	"finalshot/src/notification"
	"finalshot/src/runtimeinit"
	"finalshot/src/screenshot"
	"finalshot/src/session"
	"finalshot/src/singleinstance"
	"finalshot/src/trigger"
)

type cliOptions struct {
	configFile string
	envFile    string
	verbose    bool
	limit      int
	local      bool
}

// app carries what subcommands share. The constructors are swapped in tests.
type app struct {
	opts       cliOptions
	out        io.Writer
	rt         *runtimeinit.Runtime
	skipDPI    bool
	newService func(rt *runtimeinit.Runtime) *session.Service
	displays   func() []screenshot.Display
	// delegate hands a bang command to a running resident. Nil disables it.
	delegate func(ctx context.Context, command string) (bool, error)
}

func newApp(out io.Writer) *app {
	return &app{
		out: out,
		newService: func(rt *runtimeinit.Runtime) *session.Service {
			return session.NewSystem(rt.History, notification.Log{})
		},
		displays: screenshot.Displays,
		delegate: singleinstance.NewClient().Delegate,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(newApp(os.Stdout), normalizeLegacyArgs(os.Args))
}

func runWithArgs(a *app, args []string) error {
	if len(args) == 0 {
		args = []string{"finalshot-cli"}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(a)
	cmd.SetArgs(args[1:])
	cmd.SetOut(a.out)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "finalshot-cli",
		Short:         "Capture the screen to an image file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
				LoadOptions: config.LoadOptions{
					EnvFile:    a.opts.envFile,
					ConfigFile: a.opts.configFile,
					Flags:      cmd.Flags(),
				},
				Console: a.opts.verbose,
				SkipDPI: a.skipDPI,
			})
			if err != nil {
				return err
			}
			a.rt = rt
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.rt != nil {
				a.rt.Close()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.opts.configFile, "config", "", "YAML configuration file")
	pf.StringVar(&a.opts.envFile, "env-file", "", ".env file (default: next to the executable or $"+config.EnvFileEnvVar+")")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false, "mirror the diagnostic log to stderr")
	config.BindFlags(pf)

	cmd.AddCommand(
		a.captureCmd("full", "Capture every display", cobra.NoArgs, func(ctx context.Context, svc *session.Service, cfg config.Settings, _ []string) (session.Result, error) {
			return svc.CaptureFullScreen(ctx, cfg)
		}),
		a.captureCmd("region [x y width height]", "Capture the predefined region, or the given rectangle", regionArgs, func(ctx context.Context, svc *session.Service, cfg config.Settings, args []string) (session.Result, error) {
			if len(args) == 0 {
				return svc.CaptureRegion(ctx, cfg)
			}
			r, err := parseRegion(args)
			if err != nil {
				return session.Result{}, err
			}
			return svc.CaptureRect(ctx, cfg, r)
		}),
		a.captureCmd("window <title>", "Capture the window whose title matches", cobra.MinimumNArgs(1), func(ctx context.Context, svc *session.Service, cfg config.Settings, args []string) (session.Result, error) {
			return svc.CaptureWindow(ctx, cfg, strings.Join(args, " "))
		}),
		a.captureCmd("select", "Drag a rectangle on screen and capture it", cobra.NoArgs, func(ctx context.Context, svc *session.Service, cfg config.Settings, _ []string) (session.Result, error) {
			return svc.CaptureInteractive(ctx, cfg)
		}),
		a.bangCmd(),
		a.displaysCmd(),
		a.historyCmd(),
		a.configCmd(),
	)
	return cmd
}

type captureFunc func(ctx context.Context, svc *session.Service, cfg config.Settings, args []string) (session.Result, error)

func (a *app) captureCmd(use, short string, args cobra.PositionalArgs, capture captureFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.newService(a.rt)
			res, err := capture(cmd.Context(), svc, a.rt.Settings, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", res.Path, res.Format, res.Region)
			return nil
		},
	}
}

// bangCmd sends the command to a running resident when there is one, so
// the resident's busy policy applies. Otherwise it captures in-process.
func (a *app) bangCmd() *cobra.Command {
	capture := a.captureCmd("bang <command>", "Run a bang command: -fs, -ps, -cs, -ws|<title>, ExecuteBatch <1|2|3>", cobra.MinimumNArgs(1), func(ctx context.Context, svc *session.Service, cfg config.Settings, args []string) (session.Result, error) {
		t, err := trigger.Parse(strings.Join(args, " "))
		if err != nil {
			return session.Result{}, err
		}
		return trigger.Dispatch(ctx, svc, cfg, t)
	})
	local := capture.RunE
	capture.RunE = func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")
		if _, err := trigger.Parse(command); err != nil {
			return err
		}
		if a.delegate != nil && !a.opts.local {
			delegated, err := a.delegate(cmd.Context(), command)
			if err != nil {
				return fmt.Errorf("resident refused %q: %w", command, err)
			}
			if delegated {
				fmt.Fprintf(cmd.OutOrStdout(), "delegated %s to the running instance\n", command)
				return nil
			}
		}
		return local(cmd, args)
	}
	capture.Flags().BoolVar(&a.opts.local, "local", false, "capture in this process even if a resident is running")
	return capture
}

func regionArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 4 {
		return fmt.Errorf("region takes no arguments or exactly four (x y width height), got %d", len(args))
	}
	return nil
}

func parseRegion(args []string) (screenshot.Region, error) {
	var v [4]int
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil {
			return screenshot.Region{}, fmt.Errorf("region argument %d (%q): %w", i+1, s, err)
		}
		v[i] = n
	}
	r := screenshot.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Empty() {
		return r, fmt.Errorf("region %s: %w", r, screenshot.ErrEmptyRegion)
	}
	return r, nil
}

func (a *app) displaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List connected displays in virtual-screen coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			displays := a.displays()
			if len(displays) == 0 {
				return errors.New("no active displays found")
			}
			t := table.NewWriter()
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "X", "Y", "Width", "Height"})
			for _, d := range displays {
				b := d.Bounds
				t.AppendRow(table.Row{d.ID, b.X, b.Y, b.Width, b.Height})
			}
			v := screenshot.VirtualBounds(displays)
			t.AppendFooter(table.Row{"virtual", v.X, v.Y, v.Width, v.Height})
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.rt.History == nil {
				return fmt.Errorf("capture history is disabled; set --%s", config.FlagName(config.KeyHistoryPath))
			}
			rows, err := a.rt.History.List(a.opts.limit)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Created", "Trigger", "Region", "Format", "Path"})
			for _, c := range rows {
				t.AppendRow(table.Row{
					time.Unix(c.CreatedAt, 0).Format("2006-01-02 15:04:05"),
					c.Trigger,
					c.Region().String(),
					c.Format,
					c.Path,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().IntVar(&a.opts.limit, "limit", 20, "number of captures to show (0 for all)")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.rt.Settings.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// normalizeLegacyArgs maps single-dash long flags (-save-path) to their
// double-dash form and shields bang commands (-fs, -ws|Title) from flag
// parsing.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	long := map[string]bool{"config": true, "env-file": true, "verbose": true, "limit": true, "local": true}
	for _, key := range []string{
		config.KeySavePath, config.KeyFinishAction, config.KeyShowCursor, config.KeyJPEGQuality,
		config.KeyPredefX, config.KeyPredefY, config.KeyPredefWidth, config.KeyPredefHeight,
		config.KeyNotify, config.KeyCopyToClipboard, config.KeyDebugLog, config.KeyDebugLogPath,
		config.KeyLogLevel, config.KeyHistoryPath, config.KeyMinSelection,
		config.KeyHotkeyFull, config.KeyHotkeyRegion, config.KeyHotkeySelect,
	} {
		long[config.FlagName(key)] = true
	}

	normalized := make([]string, 0, len(args)+1)
	normalized = append(normalized, args[0])
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			normalized = append(normalized, args[i:]...)
			break
		}
		if arg == "bang" {
			normalized = append(normalized, arg)
			if i+1 < len(args) && strings.HasPrefix(args[i+1], "-") && !strings.HasPrefix(args[i+1], "--") {
				normalized = append(normalized, "--")
			}
			normalized = append(normalized, args[i+1:]...)
			break
		}
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
			name, _, _ := strings.Cut(arg[1:], "=")
			if long[name] {
				arg = "-" + arg
			}
		}
		normalized = append(normalized, arg)
	}
	return normalized
}
