// Package configwatcher reloads runtime tunables of a servolink bridge when
// its TOML configuration file changes.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/servolink/internal/cliconfig"
	"github.com/bft-labs/servolink/pkg/log"
	"github.com/bft-labs/servolink/pkg/servolink"
)

// Tuner is the part of the bridge the watcher retunes.
type Tuner interface {
	SetDebounceWindow(time.Duration)
	DebounceWindow() time.Duration
}

// Plugin watches the configuration file and applies debounce_window
// changes to the running bridge. Other keys need a restart.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration

	path     string
	target   Tuner
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path overrides the file to watch. Defaults to the bridge's ConfigPath.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Editors often write a file in several steps.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		path:          cfg.Path,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the configuration file.
func (p *Plugin) Initialize(ctx context.Context, cfg servolink.PluginConfig) error {
	var target Tuner
	if cfg.Bridge != nil {
		target = cfg.Bridge
	}
	return p.start(ctx, cfg.ConfigPath, target, cfg.Logger)
}

func (p *Plugin) start(ctx context.Context, path string, target Tuner, logger log.Logger) error {
	p.mu.Lock()
	if p.path == "" {
		p.path = path
	}
	p.target = target
	p.logger = logger
	if p.logger == nil {
		p.logger = log.NoopLogger{}
	}
	p.mu.Unlock()

	if p.path == "" || p.target == nil {
		p.logger.Warn("config watcher disabled: no configuration file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors replace files by rename, which drops a
	// watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times the configuration was applied.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.reload(); err != nil {
			p.logger.Warn("config reload failed, keeping current settings",
				log.String("path", p.path),
				log.Err(err))
		}
	})
}

// reload reads the file and applies the hot-reloadable settings.
func (p *Plugin) reload() error {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		return err
	}
	if fc.DebounceWindow == "" {
		return nil
	}
	d, err := time.ParseDuration(fc.DebounceWindow)
	if err != nil {
		return fmt.Errorf("parse debounce_window: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("negative debounce_window %s", d)
	}

	if prev := p.target.DebounceWindow(); prev != d {
		p.target.SetDebounceWindow(d)
		p.logger.Info("debounce window reloaded",
			log.Duration("previous", prev),
			log.Duration("window", d))
	}

	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
	return nil
}

// Ensure Plugin implements servolink.Plugin.
var _ servolink.Plugin = (*Plugin)(nil)
