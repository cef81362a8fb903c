package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// termsFile is the on-disk shape of the sensitive-terms file.
type termsFile struct {
	Terms []string `yaml:"terms"`
}

// LoadTerms reads a YAML file with a top-level "terms" list.
func LoadTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read terms file: %w", err)
	}
	var tf termsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse terms file %s: %w", path, err)
	}
	return tf.Terms, nil
}

// TermsWatcher reloads the sensitive-terms file when it changes and hands
// the new list to a callback.
type TermsWatcher struct {
	path     string
	debounce time.Duration
	onChange func([]string)
	logger   *zap.Logger
	watcher  *fsnotify.Watcher

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewTermsWatcher starts watching path. The parent directory is watched so
// that editors replacing the file by rename are still observed.
func NewTermsWatcher(path string, debounce time.Duration, onChange func([]string), logger *zap.Logger) (*TermsWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve terms file: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &TermsWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Watching sensitive terms file", zap.String("path", abs))
	return w, nil
}

func (w *TermsWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	var (
		debounceTimer *time.Timer
		reloadCh      <-chan time.Time
	)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			reloadCh = debounceTimer.C

		case <-reloadCh:
			reloadCh = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Terms watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

func (w *TermsWatcher) reload() {
	terms, err := LoadTerms(w.path)
	if err != nil {
		// Keep the current list; the next write will retry.
		w.logger.Warn("Failed to reload sensitive terms", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.onChange(terms)
	w.logger.Info("Sensitive terms reloaded", zap.Int("count", len(terms)))
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *TermsWatcher) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
	return nil
}
