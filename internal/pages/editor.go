/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package pages implements the page-collection editor: structural edits on a
// document's ordered page list, each recorded as an undoable action.
package pages

import (
	"log/slog"

	"pagedeck/internal/domain"
	"pagedeck/internal/event"
	applog "pagedeck/internal/log"
	"pagedeck/internal/undo"
)

// UndoLog receives the inverse of every applied edit.
type UndoLog interface {
	AddUndoAction(a undo.Action)
}

// Option configures an Editor.
type Option func(*Editor)

// WithPageSize sets the size of blank pages inserted into an empty document.
func WithPageSize(w, h float64) Option {
	return func(e *Editor) {
		if w > 0 && h > 0 {
			e.pageW, e.pageH = w, h
		}
	}
}

// Editor coordinates structural edits between the document, the undo log and
// the notification listener. All methods must be called from the event
// goroutine; the document lock is held only for the critical section and is
// always released before listeners run.
type Editor struct {
	doc     *domain.Document
	undo    UndoLog
	notify  event.Listener
	current *domain.Page // guarded by the document lock
	pageW   float64
	pageH   float64
	log     *slog.Logger
}

// NewEditor creates an editor over doc. notify may be nil.
func NewEditor(doc *domain.Document, log UndoLog, notify event.Listener, opts ...Option) *Editor {
	e := &Editor{
		doc:    doc,
		undo:   log,
		notify: notify,
		pageW:  595,
		pageH:  842,
		log:    applog.WithComponent("pages"),
	}
	for _, o := range opts {
		o(e)
	}
	if notify == nil {
		e.notify = event.Funcs{}
	}
	return e
}

// Document returns the document currently being edited.
func (e *Editor) Document() *domain.Document { return e.doc }

// Follow keeps the current page in sync with pageSelected notifications
// published by others, e.g. the undo log.
func (e *Editor) Follow(b *event.Bus) (unsubscribe func()) {
	return b.Subscribe(event.Funcs{OnSelected: e.track})
}

func (e *Editor) track(index int) {
	e.doc.Lock()
	defer e.doc.Unlock()
	if p := e.doc.GetPage(index); p != nil {
		e.current = p
	}
}

// locked runs fn with the document lock held.
func (e *Editor) locked(fn func() bool) bool {
	e.doc.Lock()
	defer e.doc.Unlock()
	return fn()
}

// CurrentIndex resolves the current page to its present position, or
// domain.NotFound when there is none or it has been removed.
func (e *Editor) CurrentIndex() int {
	e.doc.Lock()
	defer e.doc.Unlock()
	return e.doc.IndexOf(e.current)
}

// SetCurrent makes the page at index current and publishes pageSelected.
func (e *Editor) SetCurrent(index int) bool {
	ok := e.locked(func() bool {
		p := e.doc.GetPage(index)
		if p == nil {
			return false
		}
		e.current = p
		return true
	})
	if ok {
		e.notify.PageSelected(index)
	}
	return ok
}

// MoveUp swaps the page at index with its predecessor.
func (e *Editor) MoveUp(index int) bool {
	var page *domain.Page
	ok := e.locked(func() bool {
		if index <= 0 || index >= e.doc.PageCount() || e.doc.GetPage(index-1) == nil {
			return false
		}
		page = e.doc.GetPage(index)
		e.doc.DeletePage(index)
		e.doc.InsertPage(page, index-1)
		e.current = page
		return true
	})
	if !ok {
		e.log.Debug("move up ignored", slog.Int("index", index))
		return false
	}
	e.undo.AddUndoAction(undo.NewAction(undo.KindMove, index-1, index, true, page))
	e.notify.PageDeleted(index)
	e.notify.PageInserted(index - 1)
	e.notify.PageSelected(index - 1)
	return true
}

// MoveDown swaps the page at index with its successor.
func (e *Editor) MoveDown(index int) bool {
	var page *domain.Page
	ok := e.locked(func() bool {
		if index < 0 || index >= e.doc.PageCount()-1 || e.doc.GetPage(index+1) == nil {
			return false
		}
		page = e.doc.GetPage(index)
		e.doc.DeletePage(index)
		e.doc.InsertPage(page, index+1)
		e.current = page
		return true
	})
	if !ok {
		e.log.Debug("move down ignored", slog.Int("index", index))
		return false
	}
	e.undo.AddUndoAction(undo.NewAction(undo.KindMove, index, index+1, false, page))
	e.notify.PageDeleted(index)
	e.notify.PageInserted(index + 1)
	e.notify.PageSelected(index + 1)
	return true
}

// Duplicate inserts an independent copy of the page at index right after it.
func (e *Editor) Duplicate(index int) bool {
	var clone *domain.Page
	ok := e.locked(func() bool {
		p := e.doc.GetPage(index)
		if p == nil {
			return false
		}
		clone = p.Clone()
		e.doc.InsertPage(clone, index+1)
		e.current = clone
		return true
	})
	if !ok {
		e.log.Debug("duplicate ignored", slog.Int("index", index))
		return false
	}
	e.undo.AddUndoAction(undo.NewAction(undo.KindCopy, index, index+1, false, clone))
	e.notify.PageInserted(index + 1)
	e.notify.PageSelected(index + 1)
	return true
}

// Delete removes the page at index. The last remaining page is never removed.
func (e *Editor) Delete(index int) bool {
	var removed *domain.Page
	sel := domain.NotFound
	ok := e.locked(func() bool {
		n := e.doc.PageCount()
		if n <= 1 {
			return false
		}
		removed = e.doc.GetPage(index)
		if removed == nil {
			return false
		}
		e.doc.DeletePage(index)
		sel = min(index, n-2)
		e.current = e.doc.GetPage(sel)
		return true
	})
	if !ok {
		e.log.Debug("delete ignored", slog.Int("index", index))
		return false
	}
	e.undo.AddUndoAction(undo.NewAction(undo.KindDelete, index, index, false, removed))
	e.notify.PageDeleted(index)
	e.notify.PageSelected(sel)
	return true
}

// DeleteCurrent removes the current page.
func (e *Editor) DeleteCurrent() bool {
	return e.Delete(e.CurrentIndex())
}

// InsertBefore inserts a blank page at index. index may equal the page count.
func (e *Editor) InsertBefore(index int) bool {
	return e.insert(index, index, true, e.blankLocked)
}

// InsertAfter inserts a blank page at index+1.
func (e *Editor) InsertAfter(index int) bool {
	return e.insert(index, index+1, false, e.blankLocked)
}

// Paste inserts p at index, e.g. a page read back from the clipboard.
// index may equal the page count. The page is inserted as is; callers that
// paste the same content twice must hand in fresh clones.
func (e *Editor) Paste(index int, p *domain.Page) bool {
	if p == nil {
		return false
	}
	return e.insert(index, index, true, func(int) *domain.Page { return p })
}

func (e *Editor) insert(ref, at int, allowEnd bool, build func(ref int) *domain.Page) bool {
	var blank *domain.Page
	ok := e.locked(func() bool {
		n := e.doc.PageCount()
		limit := n - 1
		if allowEnd {
			limit = n
		}
		if ref < 0 || ref > limit {
			return false
		}
		blank = build(ref)
		e.doc.InsertPage(blank, at)
		e.current = blank
		return true
	})
	if !ok {
		e.log.Debug("insert ignored", slog.Int("index", ref))
		return false
	}
	e.undo.AddUndoAction(undo.NewAction(undo.KindInsert, ref, at, false, blank))
	e.notify.PageInserted(at)
	e.notify.PageSelected(at)
	return true
}

// blankLocked builds a blank page shaped like the neighbour at ref, falling
// back to the document or editor page size.
func (e *Editor) blankLocked(ref int) *domain.Page {
	tpl := e.doc.GetPage(ref)
	if tpl == nil {
		tpl = e.doc.GetPage(e.doc.PageCount() - 1)
	}
	if tpl != nil {
		return domain.NewPageLike(tpl)
	}
	if e.doc.PageWidth > 0 && e.doc.PageHeight > 0 {
		return domain.NewPage(e.doc.PageWidth, e.doc.PageHeight)
	}
	return domain.NewPage(e.pageW, e.pageH)
}

// ResizePage changes the size of the page at index in place.
func (e *Editor) ResizePage(index int, w, h float64) bool {
	ok := e.locked(func() bool {
		p := e.doc.GetPage(index)
		if p == nil || w <= 0 || h <= 0 {
			return false
		}
		p.Width, p.Height = w, h
		return true
	})
	if ok {
		e.notify.PageSizeChanged(index)
	}
	return ok
}

// Reload replaces the edited document, e.g. after the manifest changed on
// disk, and publishes a bulk change. The current page resets to the first.
func (e *Editor) Reload(doc *domain.Document) {
	doc.Lock()
	cur := doc.GetPage(0)
	doc.Unlock()
	e.doc = doc
	e.current = cur
	e.log.Debug("document reloaded", slog.Int("pages", e.pageCount()))
	e.notify.PagesBulkChanged()
}

func (e *Editor) pageCount() int {
	e.doc.Lock()
	defer e.doc.Unlock()
	return e.doc.PageCount()
}
