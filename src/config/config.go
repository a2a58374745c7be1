package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"finalshot/src/logutil"
	"finalshot/src/screenshot"
)

const (
	EnvPrefix      = "FINALSHOT"
	EnvFileEnvVar  = "FINALSHOT_ENV"
	DefaultQuality = 70
)

// Configuration keys. Each is also FINALSHOT_<KEY> in the environment and
// --<key with dashes> on the command line.
const (
	KeySavePath        = "save_path"
	KeyFinishAction    = "finish_action"
	KeyShowCursor      = "show_cursor"
	KeyJPEGQuality     = "jpeg_quality"
	KeyPredefX         = "predef_x"
	KeyPredefY         = "predef_y"
	KeyPredefWidth     = "predef_width"
	KeyPredefHeight    = "predef_height"
	KeyNotify          = "notify"
	KeyCopyToClipboard = "copy_to_clipboard"
	KeyDebugLog        = "debug_log"
	KeyDebugLogPath    = "debug_log_path"
	KeyLogLevel        = "log_level"
	KeyHistoryPath     = "history_path"
	KeyMinSelection    = "min_selection"
	KeyHotkeyFull      = "hotkey_full"
	KeyHotkeyRegion    = "hotkey_region"
	KeyHotkeySelect    = "hotkey_select"
)

var (
	// ErrNoSavePath means captures have nowhere to go; every trigger is a no-op.
	ErrNoSavePath = errors.New("save path is not configured")
	// ErrInvalidRegion means the predefined region has no area.
	ErrInvalidRegion = errors.New("predefined region must have positive width and height")
)

// Settings is an immutable snapshot of the configuration. Reloading builds a
// new value; captures keep the snapshot they started with.
type Settings struct {
	SavePath        string `mapstructure:"save_path" yaml:"save_path"`
	FinishAction    string `mapstructure:"finish_action" yaml:"finish_action"`
	ShowCursor      bool   `mapstructure:"show_cursor" yaml:"show_cursor"`
	JPEGQuality     int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	PredefX         int    `mapstructure:"predef_x" yaml:"predef_x"`
	PredefY         int    `mapstructure:"predef_y" yaml:"predef_y"`
	PredefWidth     int    `mapstructure:"predef_width" yaml:"predef_width"`
	PredefHeight    int    `mapstructure:"predef_height" yaml:"predef_height"`
	Notify          bool   `mapstructure:"notify" yaml:"notify"`
	CopyToClipboard bool   `mapstructure:"copy_to_clipboard" yaml:"copy_to_clipboard"`
	DebugLog        bool   `mapstructure:"debug_log" yaml:"debug_log"`
	DebugLogPath    string `mapstructure:"debug_log_path" yaml:"debug_log_path"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
	HistoryPath     string `mapstructure:"history_path" yaml:"history_path"`
	MinSelection    int    `mapstructure:"min_selection" yaml:"min_selection"`
	HotkeyFull      string `mapstructure:"hotkey_full" yaml:"hotkey_full"`
	HotkeyRegion    string `mapstructure:"hotkey_region" yaml:"hotkey_region"`
	HotkeySelect    string `mapstructure:"hotkey_select" yaml:"hotkey_select"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		JPEGQuality:  DefaultQuality,
		DebugLogPath: logutil.DefaultLogFileName,
		LogLevel:     "info",
		MinSelection: 1,
		HotkeyFull:   "Ctrl+Alt+F",
		HotkeyRegion: "Ctrl+Alt+P",
		HotkeySelect: "Ctrl+Alt+S",
	}
}

// PredefinedRegion returns the configured fixed capture rectangle.
func (s Settings) PredefinedRegion() screenshot.Region {
	return screenshot.Region{X: s.PredefX, Y: s.PredefY, Width: s.PredefWidth, Height: s.PredefHeight}
}

// Validate checks what every capture needs.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.SavePath) == "" {
		return ErrNoSavePath
	}
	return nil
}

// ValidatePredefined additionally checks the predefined region.
func (s Settings) ValidatePredefined() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.PredefWidth <= 0 || s.PredefHeight <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidRegion, s.PredefWidth, s.PredefHeight)
	}
	return nil
}

// Hotkeys maps trigger names to their combos, skipping empty ones.
func (s Settings) Hotkeys() map[string]string {
	out := map[string]string{}
	for name, combo := range map[string]string{"full": s.HotkeyFull, "region": s.HotkeyRegion, "select": s.HotkeySelect} {
		if strings.TrimSpace(combo) != "" {
			out[name] = combo
		}
	}
	return out
}

// YAML renders the settings in config-file form.
func (s Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

func (s Settings) normalized() Settings {
	s.SavePath = strings.TrimSpace(s.SavePath)
	s.FinishAction = strings.TrimSpace(s.FinishAction)
	s.JPEGQuality = min(max(s.JPEGQuality, 0), 100)
	if strings.TrimSpace(s.DebugLogPath) == "" {
		s.DebugLogPath = logutil.DefaultLogFileName
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.MinSelection < 1 {
		s.MinSelection = 1
	}
	return s
}

// LoadOptions selects the sources layered over the defaults.
type LoadOptions struct {
	// EnvFile overrides the .env lookup.
	EnvFile string
	// SkipEnvFile ignores .env files entirely.
	SkipEnvFile bool
	// ConfigFile is an optional YAML file.
	ConfigFile string
	// Flags, when set, must have been prepared with BindFlags.
	Flags *pflag.FlagSet
}

func Load() (Settings, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions layers, lowest first: defaults, .env, YAML file,
// FINALSHOT_* environment variables, changed command-line flags.
func LoadWithOptions(opts LoadOptions) (Settings, error) {
	v, err := newViper(opts)
	if err != nil {
		return Settings{}, err
	}
	return decode(v)
}

func newViper(opts LoadOptions) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	if !opts.SkipEnvFile {
		envPath := opts.EnvFile
		if envPath == "" {
			envPath = resolveEnvPath()
		}
		for key, val := range readDotenvValues(envPath) {
			v.SetDefault(key, val)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.Flags != nil {
		for _, key := range keys() {
			if f := opts.Flags.Lookup(FlagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s.normalized(), nil
}

// Watch reloads the YAML file on change and hands each new snapshot to
// onChange. It is a no-op without a config file.
func Watch(opts LoadOptions, onChange func(Settings)) error {
	if opts.ConfigFile == "" {
		return nil
	}
	v, err := newViper(opts)
	if err != nil {
		return err
	}
	log := logutil.WithComponent("config")
	v.OnConfigChange(func(e fsnotify.Event) {
		s, err := decode(v)
		if err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("config reload failed; keeping previous settings")
			return
		}
		log.Info().Str("file", e.Name).Msg("config reloaded")
		onChange(s)
	})
	v.WatchConfig()
	return nil
}

// BindFlags registers one flag per configuration key on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(FlagName(KeySavePath), d.SavePath, "output image path; the suffix picks the format")
	fs.String(FlagName(KeyFinishAction), d.FinishAction, "command to run after each capture")
	fs.Bool(FlagName(KeyShowCursor), d.ShowCursor, "include the mouse cursor")
	fs.Int(FlagName(KeyJPEGQuality), d.JPEGQuality, "JPEG quality 0-100")
	fs.Int(FlagName(KeyPredefX), d.PredefX, "predefined region X")
	fs.Int(FlagName(KeyPredefY), d.PredefY, "predefined region Y")
	fs.Int(FlagName(KeyPredefWidth), d.PredefWidth, "predefined region width")
	fs.Int(FlagName(KeyPredefHeight), d.PredefHeight, "predefined region height")
	fs.Bool(FlagName(KeyNotify), d.Notify, "show a notification after each capture")
	fs.Bool(FlagName(KeyCopyToClipboard), d.CopyToClipboard, "copy the saved image to the clipboard")
	fs.Bool(FlagName(KeyDebugLog), d.DebugLog, "write the diagnostic log file")
	fs.String(FlagName(KeyDebugLogPath), d.DebugLogPath, "diagnostic log file path")
	fs.String(FlagName(KeyLogLevel), d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(FlagName(KeyHistoryPath), d.HistoryPath, "SQLite file for capture history (empty disables)")
	fs.Int(FlagName(KeyMinSelection), d.MinSelection, "minimum interactive selection size in pixels")
	fs.String(FlagName(KeyHotkeyFull), d.HotkeyFull, "hotkey for full-screen capture")
	fs.String(FlagName(KeyHotkeyRegion), d.HotkeyRegion, "hotkey for predefined-region capture")
	fs.String(FlagName(KeyHotkeySelect), d.HotkeySelect, "hotkey for interactive capture")
}

// FlagName converts a configuration key to its flag spelling.
func FlagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

func keys() []string {
	return []string{
		KeySavePath, KeyFinishAction, KeyShowCursor, KeyJPEGQuality,
		KeyPredefX, KeyPredefY, KeyPredefWidth, KeyPredefHeight,
		KeyNotify, KeyCopyToClipboard, KeyDebugLog, KeyDebugLogPath, KeyLogLevel,
		KeyHistoryPath, KeyMinSelection, KeyHotkeyFull, KeyHotkeyRegion, KeyHotkeySelect,
	}
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault(KeySavePath, d.SavePath)
	v.SetDefault(KeyFinishAction, d.FinishAction)
	v.SetDefault(KeyShowCursor, d.ShowCursor)
	v.SetDefault(KeyJPEGQuality, d.JPEGQuality)
	v.SetDefault(KeyPredefX, d.PredefX)
	v.SetDefault(KeyPredefY, d.PredefY)
	v.SetDefault(KeyPredefWidth, d.PredefWidth)
	v.SetDefault(KeyPredefHeight, d.PredefHeight)
	v.SetDefault(KeyNotify, d.Notify)
	v.SetDefault(KeyCopyToClipboard, d.CopyToClipboard)
	v.SetDefault(KeyDebugLog, d.DebugLog)
	v.SetDefault(KeyDebugLogPath, d.DebugLogPath)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyHistoryPath, d.HistoryPath)
	v.SetDefault(KeyMinSelection, d.MinSelection)
	v.SetDefault(KeyHotkeyFull, d.HotkeyFull)
	v.SetDefault(KeyHotkeyRegion, d.HotkeyRegion)
	v.SetDefault(KeyHotkeySelect, d.HotkeySelect)
}

// resolveEnvPath prefers .env next to the executable, then the file named by
// FINALSHOT_ENV.
func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}
	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return ""
}

// readDotenvValues returns .env entries keyed by configuration key. Both
// FINALSHOT_SAVE_PATH and SAVE_PATH spellings are accepted; the prefixed one
// wins.
func readDotenvValues(envPath string) map[string]string {
	out := map[string]string{}
	if envPath == "" {
		return out
	}
	values, err := godotenv.Read(envPath)
	if err != nil {
		logutil.WithComponent("config").Warn().Err(err).Str("path", envPath).Msg("failed to read .env")
		return out
	}
	for _, key := range keys() {
		upper := strings.ToUpper(key)
		if val, ok := values[upper]; ok {
			out[key] = val
		}
		if val, ok := values[EnvPrefix+"_"+upper]; ok {
			out[key] = val
		}
	}
	return out
}
