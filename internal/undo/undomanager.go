/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pagedeck/internal/domain"
	"pagedeck/internal/event"
	applog "pagedeck/internal/log"
)

var (
	// ErrEmpty is returned when there is nothing to undo or redo.
	ErrEmpty = errors.New("undo: nothing to apply")
	// ErrStale is returned when the document no longer matches the recorded action.
	// The offending entry is discarded.
	ErrStale = errors.New("undo: document does not match recorded action")
)

// Kind tags a structural page edit.
type Kind uint8

const (
	KindMove Kind = iota + 1
	KindCopy
	KindDelete
	KindInsert
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindCopy:
		return "copy"
	case KindDelete:
		return "delete"
	case KindInsert:
		return "insert"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{KindMove, KindCopy, KindDelete, KindInsert} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Action records enough of a structural edit to invert it exactly.
//
//   - Move: the pages at From and To were swapped. Reversed means the moved page
//     went up and now sits at From; otherwise it went down and sits at To.
//   - Copy: Page is the clone inserted at To.
//   - Delete: Page was removed from From.
//   - Insert: Page is the blank page inserted at To.
//
// Snapshot is the JSON encoding of Page; its length is what the byte cap counts.
type Action struct {
	Seq      int64 // journal sequence, 0 when not journaled
	Kind     Kind
	From     int
	To       int
	Reversed bool
	Page     *domain.Page
	Snapshot []byte
	TS       time.Time
}

// NewAction builds an action and captures the page snapshot.
func NewAction(kind Kind, from, to int, reversed bool, page *domain.Page) Action {
	a := Action{Kind: kind, From: from, To: to, Reversed: reversed, Page: page, TS: time.Now()}
	if page != nil {
		a.Snapshot, _ = page.Snapshot()
	}
	return a
}

// Target is the document surface the log needs to apply inverses.
type Target interface {
	Lock()
	Unlock()
	PageCount() int
	GetPage(index int) *domain.Page
	IndexOfID(id string) int
	InsertPage(p *domain.Page, index int)
	DeletePage(index int)
}

// Journal persists actions so history survives the process.
type Journal interface {
	// Append stores a and drops any undone entries; it returns the sequence number.
	Append(ctx context.Context, a Action) (int64, error)
	// MarkUndone flags an entry as undone (true) or redone (false).
	MarkUndone(ctx context.Context, seq int64, undone bool) error
	// Drop deletes an entry that no longer matches the document.
	Drop(ctx context.Context, seq int64) error
}

// Config controls memory and depth caps.
type Config struct {
	// MaxDepth limits the number of undo entries (0 means unlimited).
	MaxDepth int
	// MaxBytes is a soft cap on snapshot bytes; older entries are pruned when exceeded.
	MaxBytes int
}

// Option customises a Manager.
type Option func(*Manager)

// WithJournal mirrors every recorded action into j.
func WithJournal(j Journal) Option { return func(m *Manager) { m.journal = j } }

// WithListener publishes the structural delta of each undo/redo to l.
func WithListener(l event.Listener) Option { return func(m *Manager) { m.notify = l } }

// Manager is the undo/redo log for structural page edits.
// Editors only append; Undo and Redo are driven by a separate trigger.
// It is safe for concurrent use.
type Manager struct {
	cfg        Config
	mu         sync.Mutex
	undo       []Action
	redo       []Action
	totalBytes int
	journal    Journal
	notify     event.Listener
	log        *slog.Logger
}

func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 * 1024 * 1024 // 8 MiB
	}
	m := &Manager{cfg: cfg, log: applog.WithComponent("undo")}
	for _, o := range opts {
		o(m)
	}
	return m
}

// AddUndoAction records a. Any new change invalidates the redo stack.
// Journal failures are logged; the in-memory history still records the action.
func (m *Manager) AddUndoAction(a Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.TS.IsZero() {
		a.TS = time.Now()
	}
	if m.journal != nil {
		seq, err := m.journal.Append(context.Background(), a)
		if err != nil {
			m.log.Warn("journal append failed", slog.String("kind", a.Kind.String()), slog.Any("err", err))
		} else {
			a.Seq = seq
		}
	}
	m.undo = append(m.undo, a)
	m.totalBytes += len(a.Snapshot)
	m.redo = nil
	m.enforceCapsLocked()
	m.log.Debug("recorded", slog.String("kind", a.Kind.String()), slog.Int("from", a.From), slog.Int("to", a.To))
}

// Load replaces both stacks, e.g. with history read back from a journal.
// undo is ordered oldest first; redo is ordered so the next redo is last.
func (m *Manager) Load(undo, redo []Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = append([]Action(nil), undo...)
	m.redo = append([]Action(nil), redo...)
	m.totalBytes = 0
	for _, a := range m.undo {
		m.totalBytes += len(a.Snapshot)
	}
	m.enforceCapsLocked()
}

// Undo reverts the newest action on t and moves it to the redo stack.
func (m *Manager) Undo(t Target) (Action, error) {
	m.mu.Lock()
	n := len(m.undo)
	if n == 0 {
		m.mu.Unlock()
		return Action{}, ErrEmpty
	}
	a := m.undo[n-1]
	m.undo = m.undo[:n-1]
	m.totalBytes -= len(a.Snapshot)
	d, err := revert(t, a)
	if err != nil {
		m.dropLocked(a)
		m.mu.Unlock()
		m.log.Warn("undo dropped stale entry", slog.String("kind", a.Kind.String()), slog.Any("err", err))
		return a, err
	}
	m.redo = append(m.redo, a)
	m.markLocked(a, true)
	m.mu.Unlock()

	m.publish(d)
	return a, nil
}

// Redo re-applies the most recently undone action on t.
func (m *Manager) Redo(t Target) (Action, error) {
	m.mu.Lock()
	n := len(m.redo)
	if n == 0 {
		m.mu.Unlock()
		return Action{}, ErrEmpty
	}
	a := m.redo[n-1]
	m.redo = m.redo[:n-1]
	d, err := reapply(t, a)
	if err != nil {
		m.dropLocked(a)
		m.mu.Unlock()
		m.log.Warn("redo dropped stale entry", slog.String("kind", a.Kind.String()), slog.Any("err", err))
		return a, err
	}
	m.undo = append(m.undo, a)
	m.totalBytes += len(a.Snapshot)
	m.enforceCapsLocked()
	m.markLocked(a, false)
	m.mu.Unlock()

	m.publish(d)
	return a, nil
}

func (m *Manager) markLocked(a Action, undone bool) {
	if m.journal == nil || a.Seq == 0 {
		return
	}
	if err := m.journal.MarkUndone(context.Background(), a.Seq, undone); err != nil {
		m.log.Warn("journal mark failed", slog.Int64("seq", a.Seq), slog.Any("err", err))
	}
}

// dropLocked removes a stale entry from the journal so the next session
// does not load it again.
func (m *Manager) dropLocked(a Action) {
	if m.journal == nil || a.Seq == 0 {
		return
	}
	if err := m.journal.Drop(context.Background(), a.Seq); err != nil {
		m.log.Warn("journal drop failed", slog.Int64("seq", a.Seq), slog.Any("err", err))
	}
}

func (m *Manager) publish(d delta) {
	if m.notify == nil {
		return
	}
	if d.deleted >= 0 {
		m.notify.PageDeleted(d.deleted)
	}
	if d.inserted >= 0 {
		m.notify.PageInserted(d.inserted)
	}
	if d.selected >= 0 {
		m.notify.PageSelected(d.selected)
	}
}

// CanUndo reports whether there are actions to undo.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether there are actions to redo.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Peek returns the action the next Undo would revert.
func (m *Manager) Peek() (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return Action{}, false
	}
	return m.undo[len(m.undo)-1], true
}

// Clear drops all history. Call this when a different document is loaded.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
	m.redo = nil
	m.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, undoDepth int, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 && len(m.undo) > m.cfg.MaxDepth {
		toDrop := len(m.undo) - m.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			m.totalBytes -= len(m.undo[i].Snapshot)
		}
		m.undo = append([]Action(nil), m.undo[toDrop:]...)
	}
	// Global memory cap: prune oldest, always keeping the newest entry.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 1 {
		m.totalBytes -= len(m.undo[0].Snapshot)
		m.undo = m.undo[1:]
	}
}
