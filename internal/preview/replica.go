/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package preview keeps a UI-facing replica of a document's pages: one entry
// per page in document order, with at most one selected entry and the set of
// page actions that selection allows.
package preview

import (
	"fmt"
	"log/slog"

	"pagedeck/internal/action"
	"pagedeck/internal/domain"
	"pagedeck/internal/event"
	applog "pagedeck/internal/log"
)

// None is the selection sentinel for "no page selected".
const None = -1

// Handle is an opaque render handle owned by one entry.
type Handle interface {
	Repaint()
	Destroy()
}

// Renderer creates render handles for pages.
type Renderer interface {
	NewHandle(p *domain.Page) Handle
}

// Toolbar receives the actions enabled by the current selection.
type Toolbar interface {
	SetEnabled(s action.Set)
	SetHidden(hidden bool)
}

// Source yields the document being mirrored. The editor satisfies it.
type Source interface {
	Document() *domain.Document
}

// Size is a preview size in pixels.
type Size struct {
	W, H float64
}

// Entry mirrors one page.
type Entry struct {
	Page     *domain.Page
	Handle   Handle
	Selected bool
	Size     Size
}

// Options configures a Replica.
type Options struct {
	// Debug turns replica desync into a panic instead of a forced rebuild.
	Debug bool
	// Zoom scales page size to preview size. Defaults to 0.15.
	Zoom    float64
	Toolbar Toolbar
}

// Replica mirrors the document page list. It must only be used from the
// event goroutine and never mutates the document.
type Replica struct {
	src       Source
	render    Renderer
	opts      Options
	entries   []*Entry
	selected  int
	available action.Set
	moving    *domain.Page // deleted by a move, its insertion is due next
	log       *slog.Logger
}

// New creates a replica and builds it from the current document.
func New(src Source, r Renderer, opts Options) *Replica {
	if opts.Zoom <= 0 {
		opts.Zoom = 0.15
	}
	if r == nil {
		r = nopRenderer{}
	}
	rp := &Replica{src: src, render: r, opts: opts, selected: None, log: applog.WithComponent("preview")}
	rp.rebuild()
	return rp
}

// Attach subscribes the replica to b. Selection notifications are applied
// through Select after the structural delta that precedes them.
func (r *Replica) Attach(b *event.Bus) (unsubscribe func()) {
	return b.Subscribe(event.Funcs{
		OnInserted:    r.OnPageInserted,
		OnDeleted:     r.OnPageDeleted,
		OnSelected:    r.Select,
		OnSizeChanged: r.OnPageSizeChanged,
		OnBulkChanged: r.OnPagesBulkChanged,
	})
}

// Len returns the number of entries.
func (r *Replica) Len() int { return len(r.entries) }

// Entry returns the entry at i or nil.
func (r *Replica) Entry(i int) *Entry {
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return r.entries[i]
}

// Selected returns the selected index or None.
func (r *Replica) Selected() int { return r.selected }

// Available returns the actions allowed by the current selection.
func (r *Replica) Available() action.Set { return r.available }

func (r *Replica) pageCount() int {
	doc := r.src.Document()
	doc.Lock()
	defer doc.Unlock()
	return doc.PageCount()
}

// OnPagesBulkChanged rebuilds the replica unless it already has one entry
// per page.
func (r *Replica) OnPagesBulkChanged() {
	if len(r.entries) == r.pageCount() {
		return
	}
	r.rebuild()
}

// OnPageInserted adds an entry for the page now at index and clears the selection.
func (r *Replica) OnPageInserted(index int) {
	if !r.inSync("inserted", len(r.entries)+1) {
		return
	}
	r.clearSelection()
	doc := r.src.Document()
	doc.Lock()
	p := doc.GetPage(index)
	doc.Unlock()
	if p == nil {
		r.desync("inserted index out of range")
		return
	}
	if r.moving != nil {
		moved := r.moving
		r.moving = nil
		if p != moved {
			r.desync("moved page reinserted at the wrong index")
			return
		}
	}
	e := r.newEntry(p)
	r.entries = append(r.entries, nil)
	copy(r.entries[index+1:], r.entries[index:])
	r.entries[index] = e
	r.publish()
}

// OnPageDeleted drops the entry at index and clears the selection. A move is
// announced as a deletion followed by an insertion after the document has
// already been reordered. An unchanged page count is therefore accepted only
// when the page of that entry is still in the document at another index, and
// the next notification must be the insertion of that same page.
func (r *Replica) OnPageDeleted(index int) {
	if r.moving != nil {
		r.desync("deleted: a moved page was never reinserted")
		return
	}
	move := r.movedAway(index)
	if n := r.pageCount(); n != len(r.entries)-1 && !move {
		r.desync(fmt.Sprintf("deleted: replica has %d entries, document has %d pages", len(r.entries), n))
		return
	}
	r.clearSelection()
	if index < 0 || index >= len(r.entries) {
		r.desync("deleted index out of range")
		return
	}
	if move {
		r.moving = r.entries[index].Page
	}
	r.entries[index].Handle.Destroy()
	copy(r.entries[index:], r.entries[index+1:])
	r.entries[len(r.entries)-1] = nil
	r.entries = r.entries[:len(r.entries)-1]
	r.publish()
}

// OnPageSizeChanged refreshes the cached size of one entry and repaints it.
func (r *Replica) OnPageSizeChanged(index int) {
	if !r.inSync("size changed", len(r.entries)) {
		return
	}
	e := r.Entry(index)
	if e == nil {
		return
	}
	doc := r.src.Document()
	doc.Lock()
	e.Size = r.sizeOf(e.Page)
	doc.Unlock()
	e.Handle.Repaint()
}

// Select marks index as the single selected entry. None, or any index out of
// range, clears the selection and disables all page actions.
func (r *Replica) Select(index int) {
	// after a forced rebuild the requested selection still applies
	r.inSync("select", len(r.entries))
	r.clearSelection()
	if index != None && (index < 0 || index >= len(r.entries)) {
		r.log.Debug("select out of range", slog.Int("index", index), slog.Int("len", len(r.entries)))
		index = None
	}
	if index != None {
		r.entries[index].Selected = true
		r.selected = index
		r.available = availableAt(index, len(r.entries))
		r.entries[index].Handle.Repaint()
	}
	r.publish()
}

// availableAt computes the actions allowed for a selection at index.
func availableAt(index, n int) action.Set {
	var s action.Set
	if index != 0 {
		s = s.With(action.MoveUp)
	}
	if index != n-1 {
		s = s.With(action.MoveDown)
	}
	if n != 0 {
		s = s.With(action.Copy)
	}
	if n > 1 {
		s = s.With(action.Delete)
	}
	return s.With(action.InsertBefore).With(action.InsertAfter)
}

func (r *Replica) clearSelection() {
	if e := r.Entry(r.selected); e != nil {
		e.Selected = false
		e.Handle.Repaint()
	}
	r.selected = None
	r.available = 0
}

func (r *Replica) publish() {
	if r.opts.Toolbar == nil {
		return
	}
	r.opts.Toolbar.SetEnabled(r.available)
	r.opts.Toolbar.SetHidden(r.selected == None)
}

// inSync checks the document page count against the counts the replica can
// accept for op. On mismatch it panics in debug mode, else rebuilds and
// reports false.
func (r *Replica) inSync(op string, want ...int) bool {
	if r.moving != nil && op != "inserted" {
		r.desync(op + ": a moved page was never reinserted")
		return false
	}
	n := r.pageCount()
	for _, w := range want {
		if w == n {
			return true
		}
	}
	r.desync(fmt.Sprintf("%s: replica has %d entries, document has %d pages", op, len(r.entries), n))
	return false
}

// movedAway reports whether the entry at index belongs to a page that is
// still in the document, at another index, with the page count unchanged.
func (r *Replica) movedAway(index int) bool {
	e := r.Entry(index)
	if e == nil {
		return false
	}
	doc := r.src.Document()
	doc.Lock()
	defer doc.Unlock()
	if doc.PageCount() != len(r.entries) {
		return false
	}
	at := doc.IndexOf(e.Page)
	return at != domain.NotFound && at != index
}

func (r *Replica) desync(msg string) {
	if r.opts.Debug {
		panic("preview: replica desync: " + msg)
	}
	r.log.Warn("replica desync, rebuilding", slog.String("detail", msg))
	r.rebuild()
}

func (r *Replica) rebuild() {
	for _, e := range r.entries {
		e.Handle.Destroy()
	}
	doc := r.src.Document()
	doc.Lock()
	n := doc.PageCount()
	entries := make([]*Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = r.newEntry(doc.GetPage(i))
	}
	doc.Unlock()
	r.entries = entries
	r.moving = nil
	r.selected = None
	r.available = 0
	r.publish()
	r.log.Debug("replica rebuilt", slog.Int("entries", n))
}

// newEntry builds an entry for p. Callers hold the document lock or own p.
func (r *Replica) newEntry(p *domain.Page) *Entry {
	return &Entry{Page: p, Handle: r.render.NewHandle(p), Size: r.sizeOf(p)}
}

func (r *Replica) sizeOf(p *domain.Page) Size {
	return Size{W: p.Width * r.opts.Zoom, H: p.Height * r.opts.Zoom}
}

type nopRenderer struct{}

func (nopRenderer) NewHandle(*domain.Page) Handle { return nopHandle{} }

type nopHandle struct{}

func (nopHandle) Repaint() {}
func (nopHandle) Destroy() {}
