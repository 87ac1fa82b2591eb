// Package mcpconfig loads the TOML-encoded settings a cmd/ binary needs to
// stand up a Server or Client — transport selection, the rotating log file,
// and server identity/instructions — and can watch the file for edits,
// mirroring the fsnotify-driven reload loop this corpus uses for its own
// config/source watchers.
package mcpconfig

import (
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// TransportConfig selects and configures one of this module's transports.
type TransportConfig struct {
	Kind string `toml:"kind"` // "stdio", "sse", or "websocket"
	Addr string `toml:"addr"` // listen/dial address for sse and websocket
	Path string `toml:"path"` // HTTP path for sse and websocket
}

// LogConfig configures mcplog.
type LogConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	StdioSafe bool   `toml:"stdio_safe"`
}

// FileConfig describes a rotating log file; cmd/ binaries convert it to
// mcplog.FileConfig.
type FileConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ServerConfig is the identity and instructions a Server reports at
// initialize.
type ServerConfig struct {
	Name         string `toml:"name"`
	Version      string `toml:"version"`
	Instructions string `toml:"instructions"`
}

// Config is the top-level document a cmd/ binary decodes from a TOML file.
type Config struct {
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
}

// Load decodes path into a Config, applying defaults for zero-value fields.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "mcpconfig: decode %s", path)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = "stdio"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Watcher reloads a Config from disk whenever the backing file changes,
// debouncing bursts of writes the way a single-file fsnotify watch sees
// from editors that write-then-rename.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher

	mu  sync.RWMutex
	cfg *Config

	onReload func(*Config)
	stop     chan struct{}
	stopOnce sync.Once
}

// WatchFile loads path once, then watches it for changes, invoking
// onReload (if non-nil) after each successful reload. Call Close to stop
// watching.
func WatchFile(path string, onReload func(*Config)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "mcpconfig: new watcher")
	}
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, errors.Wrapf(err, "mcpconfig: watch %s", path)
	}

	w := &Watcher{
		path:      path,
		fsWatcher: fsWatcher,
		cfg:       cfg,
		onReload:  onReload,
		stop:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

func (w *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, w.reload)
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		case <-w.stop:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Close stops the watch goroutine and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stop) })
	return w.fsWatcher.Close()
}
