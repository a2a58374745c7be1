package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	gohook "github.com/robotn/gohook"

	"finalshot/src/logutil"
)

// ErrNoBindings is returned when no combo could be mapped to key codes.
var ErrNoBindings = errors.New("no usable hotkey bindings")

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

type binding struct {
	name  string
	combo string
	keys  []keyState
}

// Matcher tracks key state for several combos and reports which fire.
type Matcher struct {
	mu       sync.Mutex
	bindings []*binding
}

// NewMatcher builds a matcher for name -> combo pairs like
// {"full": "Ctrl+Alt+F"}. Combos containing unknown keys are skipped.
func NewMatcher(combos map[string]string) (*Matcher, error) {
	log := logutil.WithComponent("hotkey")
	names := make([]string, 0, len(combos))
	for name := range combos {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &Matcher{}
	for _, name := range names {
		combo := combos[name]
		b := &binding{name: name, combo: combo}
		valid := true
		for _, key := range parseHotkey(combo) {
			rawcodes := keyNameToRawcodes(key)
			if len(rawcodes) == 0 {
				log.Error().Str("key", key).Str("combo", combo).Msg("cannot map key to rawcodes; skipping hotkey")
				valid = false
				break
			}
			b.keys = append(b.keys, keyState{name: key, rawcodes: rawcodes})
		}
		if !valid || len(b.keys) == 0 {
			continue
		}
		log.Info().Str("trigger", name).Str("combo", combo).Msg("hotkey configured")
		m.bindings = append(m.bindings, b)
	}
	if len(m.bindings) == 0 {
		return nil, ErrNoBindings
	}
	return m, nil
}

// KeyDown records a press and returns the names of combos now complete.
// A completed combo resets, so holding the keys fires once.
func (m *Matcher) KeyDown(rawcode uint16) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var fired []string
	for _, b := range m.bindings {
		for i := range b.keys {
			if contains(b.keys[i].rawcodes, rawcode) {
				b.keys[i].pressed = true
			}
		}
		if b.complete() {
			fired = append(fired, b.name)
			for i := range b.keys {
				b.keys[i].pressed = false
			}
		}
	}
	return fired
}

// KeyUp records a release.
func (m *Matcher) KeyUp(rawcode uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bindings {
		for i := range b.keys {
			if contains(b.keys[i].rawcodes, rawcode) {
				b.keys[i].pressed = false
			}
		}
	}
}

func (b *binding) complete() bool {
	for _, k := range b.keys {
		if !k.pressed {
			return false
		}
	}
	return true
}

func contains(codes []uint16, c uint16) bool {
	for _, v := range codes {
		if v == c {
			return true
		}
	}
	return false
}

// Listener owns the global keyboard hook. Its bindings can be replaced
// while the hook keeps running.
type Listener struct {
	matcher  atomic.Pointer[Matcher]
	callback func(name string)
	stop     sync.Once
}

// Listen registers global hotkeys and calls callback with the binding name
// each time its combo is pressed.
func Listen(combos map[string]string, callback func(name string)) (*Listener, error) {
	l := &Listener{callback: callback}
	if err := l.Rebind(combos); err != nil {
		return nil, err
	}
	log := logutil.WithComponent("hotkey")

	evChan := gohook.Start()
	if evChan == nil {
		return nil, errors.New("gohook.Start() returned nil channel")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("hotkey goroutine panicked")
			}
		}()
		for ev := range evChan {
			l.handle(ev)
		}
		log.Debug().Msg("hook event channel closed")
	}()
	return l, nil
}

// Rebind swaps in new bindings. On error the previous bindings stay active.
func (l *Listener) Rebind(combos map[string]string) error {
	m, err := NewMatcher(combos)
	if err != nil {
		return fmt.Errorf("hotkeys %v: %w", combos, err)
	}
	l.matcher.Store(m)
	return nil
}

// Stop ends the hook.
func (l *Listener) Stop() { l.stop.Do(gohook.End) }

func (l *Listener) handle(ev gohook.Event) {
	m := l.matcher.Load()
	if m == nil {
		return
	}
	switch ev.Kind {
	case gohook.KeyDown:
		for _, name := range m.KeyDown(ev.Rawcode) {
			logutil.WithComponent("hotkey").Debug().Str("trigger", name).Msg("hotkey activated")
			if l.callback != nil {
				l.callback(name)
			}
		}
	case gohook.KeyUp:
		m.KeyUp(ev.Rawcode)
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// keyNameToRawcodes maps a key name to its Windows virtual key code rawcodes.
// Modifiers map to both their left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	switch keyName {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup", "pgup":
		return []uint16{33}
	case "pagedown", "pgdn":
		return []uint16{34}
	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	case "printscreen", "prtsc", "print":
		return []uint16{44} // VK_SNAPSHOT
	}

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	// F1-F24 are VK 112-135.
	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}

	logutil.WithComponent("hotkey").Warn().Str("key", keyName).Msg("unknown key name; cannot map to rawcode")
	return nil
}
