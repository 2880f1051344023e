// Copyright 2026 © The OpenClaw Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls one config file's modification time and reloads it on
// change. The bridge process is long-lived; operators edit governance lists
// in place and expect them to take effect without a restart.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	lastMod   time.Time
	current   *Config
	listeners []func(*Config)

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher loads path once and prepares to watch it. The initial load must
// succeed; later reload failures keep the last good config.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: time.Second,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w.current = cfg
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	return w, nil
}

// OnChange registers a callback invoked with each successfully reloaded
// config. Register callbacks before Start.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins polling until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go func() {
		defer close(w.doneCh)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
				if w.changed() {
					w.reload()
				}
			}
		}
	}()
}

// Stop halts polling and waits for the poll loop to exit. Safe to call more
// than once, and a no-op when the watcher was never started.
func (w *Watcher) Stop() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()
	w.stopOnce.Do(func() { close(w.stopCh) })
	if started {
		<-w.doneCh
	}
}

func (w *Watcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		// A vanished file is not a change; the last good config stands.
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod = info.ModTime()
	return true
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	listeners := make([]func(*Config), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)
	for _, fn := range listeners {
		fn(cfg)
	}
}
