/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package preview

import (
	"math/rand"
	"testing"

	"pagedeck/internal/action"
	"pagedeck/internal/domain"
	"pagedeck/internal/event"
	"pagedeck/internal/pages"
	"pagedeck/internal/undo"
)

type countHandle struct {
	repaints  int
	destroyed bool
}

func (h *countHandle) Repaint() { h.repaints++ }
func (h *countHandle) Destroy() { h.destroyed = true }

type countRenderer struct{ handles []*countHandle }

func (c *countRenderer) NewHandle(*domain.Page) Handle {
	h := &countHandle{}
	c.handles = append(c.handles, h)
	return h
}

type toolbar struct {
	enabled action.Set
	hidden  bool
}

func (t *toolbar) SetEnabled(s action.Set) { t.enabled = s }
func (t *toolbar) SetHidden(h bool)        { t.hidden = h }

type fixture struct {
	doc    *domain.Document
	bus    *event.Bus
	undo   *undo.Manager
	editor *pages.Editor
	rep    *Replica
	render *countRenderer
	tb     *toolbar
}

func newFixture(n int, debug bool) *fixture {
	ps := make([]*domain.Page, n)
	for i := range ps {
		ps[i] = domain.NewPage(200, 100)
	}
	f := &fixture{doc: domain.NewDocument(ps...), bus: event.NewBus(), render: &countRenderer{}, tb: &toolbar{}}
	f.undo = undo.NewManager(undo.Config{}, undo.WithListener(f.bus))
	f.editor = pages.NewEditor(f.doc, f.undo, f.bus)
	f.editor.Follow(f.bus)
	f.rep = New(f.editor, f.render, Options{Debug: debug, Zoom: 0.5, Toolbar: f.tb})
	f.rep.Attach(f.bus)
	return f
}

func (f *fixture) assertInvariants(t *testing.T) {
	t.Helper()
	f.doc.Lock()
	n := f.doc.PageCount()
	order := f.doc.Pages()
	f.doc.Unlock()
	if f.rep.Len() != n {
		t.Fatalf("replica has %d entries, document %d pages", f.rep.Len(), n)
	}
	selected := 0
	for i := 0; i < f.rep.Len(); i++ {
		e := f.rep.Entry(i)
		if e.Page != order[i] {
			t.Fatalf("entry %d mirrors the wrong page", i)
		}
		if e.Selected {
			selected++
			if f.rep.Selected() != i {
				t.Fatalf("entry %d selected but Selected()=%d", i, f.rep.Selected())
			}
		}
	}
	if selected > 1 {
		t.Fatalf("%d entries selected", selected)
	}
}

func TestScenarioMoveUpSelection(t *testing.T) {
	f := newFixture(3, true)
	f.editor.SetCurrent(1)
	if f.rep.Selected() != 1 {
		t.Fatalf("expected selection 1, got %d", f.rep.Selected())
	}
	if !f.editor.MoveUp(1) {
		t.Fatalf("MoveUp rejected")
	}
	f.assertInvariants(t)
	if f.rep.Selected() != 0 {
		t.Fatalf("selection should follow to 0, got %d", f.rep.Selected())
	}
	av := f.rep.Available()
	if av.Has(action.MoveUp) || !av.Has(action.MoveDown) || !av.Has(action.Copy) || !av.Has(action.Delete) {
		t.Fatalf("unexpected available actions %s", av)
	}
	if f.tb.enabled != av || f.tb.hidden {
		t.Fatalf("toolbar not updated: %s hidden=%v", f.tb.enabled, f.tb.hidden)
	}
}

func TestAvailableActions(t *testing.T) {
	cases := []struct {
		index, n int
		has      []action.Action
		lacks    []action.Action
	}{
		{0, 1, []action.Action{action.Copy}, []action.Action{action.MoveUp, action.MoveDown, action.Delete}},
		{0, 3, []action.Action{action.MoveDown, action.Copy, action.Delete}, []action.Action{action.MoveUp}},
		{2, 3, []action.Action{action.MoveUp, action.Copy, action.Delete}, []action.Action{action.MoveDown}},
		{1, 3, []action.Action{action.MoveUp, action.MoveDown, action.Copy, action.Delete}, nil},
	}
	for _, c := range cases {
		s := availableAt(c.index, c.n)
		for _, a := range c.has {
			if !s.Has(a) {
				t.Fatalf("index %d of %d: expected %s in %s", c.index, c.n, a, s)
			}
		}
		for _, a := range c.lacks {
			if s.Has(a) {
				t.Fatalf("index %d of %d: unexpected %s in %s", c.index, c.n, a, s)
			}
		}
	}
}

func TestSelectNoneClearsEverything(t *testing.T) {
	f := newFixture(3, true)
	f.rep.Select(2)
	f.rep.Select(None)
	for i := 0; i < f.rep.Len(); i++ {
		if f.rep.Entry(i).Selected {
			t.Fatalf("entry %d still selected", i)
		}
	}
	if !f.rep.Available().Empty() || !f.tb.hidden {
		t.Fatalf("None must disable all actions and hide the toolbar")
	}
	f.rep.Select(7)
	if f.rep.Selected() != None {
		t.Fatalf("out of range select should clear")
	}
}

func TestDeleteClearsUnrelatedSelection(t *testing.T) {
	f := newFixture(4, true)
	f.rep.Select(2)
	f.doc.Lock()
	f.doc.DeletePage(1)
	f.doc.Unlock()
	f.rep.OnPageDeleted(1)
	if f.rep.Selected() != None {
		t.Fatalf("structural delta must clear the selection")
	}
	f.assertInvariants(t)
	destroyed := 0
	for _, h := range f.render.handles {
		if h.destroyed {
			destroyed++
		}
	}
	if destroyed != 1 {
		t.Fatalf("expected one destroyed handle, got %d", destroyed)
	}
}

func TestBulkChangedCheapPath(t *testing.T) {
	f := newFixture(5, true)
	f.rep.OnPagesBulkChanged()
	if allocs := testing.AllocsPerRun(100, f.rep.OnPagesBulkChanged); allocs != 0 {
		t.Fatalf("redundant bulk change allocated %v times", allocs)
	}
	built := len(f.render.handles)
	f.editor.Reload(domain.NewDocument(domain.NewPage(1, 1), domain.NewPage(1, 1)))
	f.assertInvariants(t)
	if len(f.render.handles) != built+2 {
		t.Fatalf("reload should rebuild two entries")
	}
	for _, h := range f.render.handles[:built] {
		if !h.destroyed {
			t.Fatalf("old handles must be destroyed on rebuild")
		}
	}
}

func TestSizeChangedRepaints(t *testing.T) {
	f := newFixture(2, true)
	if !f.editor.ResizePage(1, 400, 300) {
		t.Fatalf("ResizePage rejected")
	}
	e := f.rep.Entry(1)
	if e.Size != (Size{W: 200, H: 150}) {
		t.Fatalf("size not recomputed: %+v", e.Size)
	}
	if e.Handle.(*countHandle).repaints != 1 {
		t.Fatalf("entry should be repainted once")
	}
}

func TestDesyncPanicsInDebug(t *testing.T) {
	f := newFixture(2, true)
	f.doc.Lock()
	f.doc.InsertPage(domain.NewPage(1, 1), 0)
	f.doc.Unlock()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on desync")
		}
	}()
	f.rep.Select(0)
}

func TestDesyncRebuildsInRelease(t *testing.T) {
	f := newFixture(2, false)
	f.doc.Lock()
	f.doc.InsertPage(domain.NewPage(1, 1), 0)
	f.doc.Unlock()
	f.rep.Select(0)
	f.assertInvariants(t)
	if f.rep.Selected() != 0 {
		t.Fatalf("selection should apply after the rebuild")
	}
	f.rep.OnPageInserted(0)
	f.assertInvariants(t)
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a desync panic: %s", what)
		}
	}()
	fn()
}

func TestDeleteWithUnchangedCountIsDesyncUnlessMove(t *testing.T) {
	f := newFixture(3, true)
	// a missed insertion followed by a deletion leaves the count unchanged
	f.doc.Lock()
	f.doc.InsertPage(domain.NewPage(1, 1), 0)
	f.doc.DeletePage(3)
	f.doc.Unlock()
	expectPanic(t, "deleted page no longer in the document", func() { f.rep.OnPageDeleted(2) })
}

func TestMoveMustBeCompletedByInsert(t *testing.T) {
	f := newFixture(3, true)
	f.doc.Lock()
	p := f.doc.GetPage(1)
	f.doc.DeletePage(1)
	f.doc.InsertPage(p, 0)
	f.doc.Unlock()
	f.rep.OnPageDeleted(1)
	expectPanic(t, "selection before the moved page was reinserted", func() { f.rep.Select(0) })

	g := newFixture(3, false)
	g.doc.Lock()
	q := g.doc.GetPage(1)
	g.doc.DeletePage(1)
	g.doc.InsertPage(q, 0)
	g.doc.Unlock()
	g.rep.OnPageDeleted(1)
	g.rep.OnPageInserted(2)
	g.assertInvariants(t)
}

func TestRandomEditsKeepReplicaInSync(t *testing.T) {
	f := newFixture(3, true)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := f.doc.PageCount()
		idx := rng.Intn(n + 1)
		switch rng.Intn(8) {
		case 0:
			f.editor.MoveUp(idx)
		case 1:
			f.editor.MoveDown(idx)
		case 2:
			f.editor.Duplicate(idx)
		case 3:
			f.editor.Delete(idx)
		case 4:
			f.editor.InsertBefore(idx)
		case 5:
			f.editor.InsertAfter(idx)
		case 6:
			_, _ = f.undo.Undo(f.doc)
		case 7:
			_, _ = f.undo.Redo(f.doc)
		}
		f.assertInvariants(t)
	}
}
