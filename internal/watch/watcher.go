/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package watch follows a deck manifest on disk and reports external edits.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "pagedeck/internal/log"
)

// DefaultDebounce coalesces bursts of writes, e.g. a save that writes a
// temp file and renames it.
const DefaultDebounce = 150 * time.Millisecond

// Watcher calls OnChange after the watched file was written or replaced.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration

	fsw    *fsnotify.Watcher
	errs   chan error
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for path. onChange runs on a timer goroutine; callers
// that touch shared state should post to their event loop from it.
func New(path string, onChange func(), opts ...Option) *Watcher {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		errs:     make(chan error, 8),
		log:      applog.WithComponent("watch").With(slog.String("path", path)),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start begins watching. The containing directory is watched so that
// atomic rename-over saves are seen.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.fsw = fsw
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	w.log.Debug("watching")
	return nil
}

// Errors reports watcher errors. Errors are dropped when nobody reads them.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close stops watching and cancels a pending notification.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.Any("err", err))
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	w.log.Debug("manifest changed")
	w.onChange()
}
