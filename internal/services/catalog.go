package services

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	json "github.com/goccy/go-json"

	"signalgate/internal/providers"
	"signalgate/internal/structures"
)

// Signal is one gated trading-signal card. Payload is the paid content and
// leaves the catalog only through the unlock service.
type Signal struct {
	ID      string `json:"id"`
	Pair    string `json:"pair"`
	Risk    string `json:"risk"`
	Preview string `json:"preview"`
	Payload string `json:"payload"`
}

// SignalPreview is the locked public projection of a Signal.
type SignalPreview struct {
	ID      string `json:"id"`
	Pair    string `json:"pair"`
	Risk    string `json:"risk"`
	Preview string `json:"preview"`
}

type SignalCatalogInterface interface {
	Get(id string) (*Signal, bool)
	Has(id string) bool
	ListPreviews(risk string) []SignalPreview
	Reload() error
	Close()
}

// SignalCatalog serves the current stream of published signals from a JSON
// file and optionally hot-reloads it when the file changes. The catalog also
// defines which signals still count against a holder's quota.
type SignalCatalog struct {
	mu      sync.RWMutex
	path    string
	signals map[string]Signal
	order   []string
	watcher *fsnotify.Watcher
	logger  providers.Logger
}

func NewSignalCatalog(conf *structures.Config, logger providers.Logger) (SignalCatalogInterface, error) {
	c := &SignalCatalog{
		path:    conf.Catalog.FilePath,
		signals: make(map[string]Signal),
		logger:  logger,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}

	if conf.Catalog.Watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("catalog watcher: %w", err)
		}
		if err := watcher.Add(conf.Catalog.FilePath); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("catalog watcher: %w", err)
		}
		c.watcher = watcher
		go c.watch()
	}
	return c, nil
}

func (c *SignalCatalog) watch() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := c.Reload(); err != nil {
				c.logger.Errorf(providers.TypeApp, "Catalog reload failed: %s", err)
				continue
			}
			c.logger.Infof(providers.TypeApp, "Catalog reloaded from %s", c.path)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warnf(providers.TypeApp, "Catalog watcher: %s", err)
		}
	}
}

func (c *SignalCatalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("catalog read: %w", err)
	}

	var list []Signal
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("catalog parse: %w", err)
	}

	signals := make(map[string]Signal, len(list))
	order := make([]string, 0, len(list))
	for _, sig := range list {
		if sig.ID == "" {
			return fmt.Errorf("catalog parse: signal without id")
		}
		if _, ok := signals[sig.ID]; ok {
			return fmt.Errorf("catalog parse: duplicate signal id %q", sig.ID)
		}
		signals[sig.ID] = sig
		order = append(order, sig.ID)
	}

	c.mu.Lock()
	c.signals = signals
	c.order = order
	c.mu.Unlock()
	return nil
}

func (c *SignalCatalog) Get(id string) (*Signal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sig, ok := c.signals[id]
	if !ok {
		return nil, false
	}
	return &sig, true
}

func (c *SignalCatalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.signals[id]
	return ok
}

// ListPreviews returns locked previews in file order, optionally filtered by
// risk level. Empty risk means no filter.
func (c *SignalCatalog) ListPreviews(risk string) []SignalPreview {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]SignalPreview, 0, len(c.order))
	for _, id := range c.order {
		sig := c.signals[id]
		if risk != "" && sig.Risk != risk {
			continue
		}
		out = append(out, SignalPreview{ID: sig.ID, Pair: sig.Pair, Risk: sig.Risk, Preview: sig.Preview})
	}
	return out
}

func (c *SignalCatalog) Close() {
	if c.watcher != nil {
		_ = c.watcher.Close()
	}
}
