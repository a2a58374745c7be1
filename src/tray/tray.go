// Package tray shows the resident menu in the system notification area.
package tray

import (
	"sync"
	"time"

	"github.com/getlantern/systray"

	"finalshot/src/logutil"
)

// notifyDuration is how long a notification replaces the default tooltip.
const notifyDuration = 5 * time.Second

// Item is one menu entry. Name is passed back to OnSelect.
type Item struct {
	Name    string
	Title   string
	Tooltip string
}

type Config struct {
	Title    string
	Tooltip  string
	Items    []Item
	OnSelect func(name string)
	OnExit   func()
}

// Tray wraps systray. It also acts as a notification.Notifier by briefly
// showing the message as the tooltip.
type Tray struct {
	cfg Config

	mu      sync.Mutex
	ready   bool
	tooltip string
	restore *time.Timer
}

func New(cfg Config) *Tray {
	return &Tray{cfg: cfg, tooltip: cfg.Tooltip}
}

// Run blocks until Quit is called. Call it from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) Quit() { systray.Quit() }

func (t *Tray) onReady() {
	log := logutil.WithComponent("tray")
	systray.SetIcon(Icon())
	systray.SetTitle(t.cfg.Title)

	t.mu.Lock()
	t.ready = true
	systray.SetTooltip(t.tooltip)
	t.mu.Unlock()

	for _, it := range t.cfg.Items {
		mi := systray.AddMenuItem(it.Title, it.Tooltip)
		go func(name string, ch <-chan struct{}) {
			for range ch {
				log.Debug().Str("item", name).Msg("menu item clicked")
				if t.cfg.OnSelect != nil {
					t.cfg.OnSelect(name)
				}
			}
		}(it.Name, mi.ClickedCh)
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit FinalShot")
	go func() {
		<-mQuit.ClickedCh
		systray.Quit()
	}()
	log.Debug().Int("items", len(t.cfg.Items)).Msg("tray ready")
}

func (t *Tray) onExit() {
	t.mu.Lock()
	if t.restore != nil {
		t.restore.Stop()
	}
	t.ready = false
	t.mu.Unlock()
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}

// SetTooltip changes the resting tooltip.
func (t *Tray) SetTooltip(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tooltip = text
	if t.ready && t.restore == nil {
		systray.SetTooltip(text)
	}
}

// Notify shows "title: message" as the tooltip for a few seconds.
func (t *Tray) Notify(title, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}
	systray.SetTooltip(title + ": " + message)
	if t.restore != nil {
		t.restore.Stop()
	}
	t.restore = time.AfterFunc(notifyDuration, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.restore = nil
		if t.ready {
			systray.SetTooltip(t.tooltip)
		}
	})
}
