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
	"reflect"
	"testing"

	"pagedeck/internal/domain"
	"pagedeck/internal/event"
)

func newDoc(n int) (*domain.Document, []*domain.Page) {
	pages := make([]*domain.Page, n)
	for i := range pages {
		pages[i] = domain.NewPage(100, 100)
	}
	return domain.NewDocument(pages...), pages
}

func order(d *domain.Document) []*domain.Page {
	d.Lock()
	defer d.Unlock()
	return d.Pages()
}

func TestUndoRedoMoveUp(t *testing.T) {
	doc, p := newDoc(3)
	// the editor's move-up of index 1: [P0,P1,P2] -> [P1,P0,P2]
	doc.Lock()
	doc.DeletePage(1)
	doc.InsertPage(p[1], 0)
	doc.Unlock()

	var events []string
	m := NewManager(Config{}, WithListener(event.Funcs{
		OnDeleted:  func(i int) { events = append(events, fmt.Sprintf("del(%d)", i)) },
		OnInserted: func(i int) { events = append(events, fmt.Sprintf("ins(%d)", i)) },
		OnSelected: func(i int) { events = append(events, fmt.Sprintf("sel(%d)", i)) },
	}))
	m.AddUndoAction(NewAction(KindMove, 0, 1, true, p[1]))

	if _, err := m.Undo(doc); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := order(doc); !reflect.DeepEqual(got, p) {
		t.Fatalf("undo did not restore order")
	}
	if want := []string{"del(0)", "ins(1)", "sel(1)"}; !reflect.DeepEqual(events, want) {
		t.Fatalf("events %v want %v", events, want)
	}

	if _, err := m.Redo(doc); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if got := order(doc); got[0] != p[1] || got[1] != p[0] || got[2] != p[2] {
		t.Fatalf("redo did not re-apply the move")
	}
	if events[len(events)-1] != "sel(0)" {
		t.Fatalf("redo should select the moved page at 0, events %v", events)
	}
}

func TestUndoMoveDown(t *testing.T) {
	doc, p := newDoc(3)
	doc.Lock()
	doc.DeletePage(0)
	doc.InsertPage(p[0], 1)
	doc.Unlock()

	m := NewManager(Config{})
	m.AddUndoAction(NewAction(KindMove, 0, 1, false, p[0]))
	if _, err := m.Undo(doc); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := order(doc); !reflect.DeepEqual(got, p) {
		t.Fatalf("undo did not restore order")
	}
}

func TestUndoRedoCopyDeleteInsert(t *testing.T) {
	doc, p := newDoc(2)
	m := NewManager(Config{})

	clone := p[0].Clone()
	doc.Lock()
	doc.InsertPage(clone, 1)
	doc.Unlock()
	m.AddUndoAction(NewAction(KindCopy, 0, 1, false, clone))

	doc.Lock()
	doc.DeletePage(2)
	doc.Unlock()
	m.AddUndoAction(NewAction(KindDelete, 2, 0, false, p[1]))

	blank := domain.NewPage(1, 1)
	doc.Lock()
	doc.InsertPage(blank, 0)
	doc.Unlock()
	m.AddUndoAction(NewAction(KindInsert, 0, 0, false, blank))

	for i := 0; i < 3; i++ {
		if _, err := m.Undo(doc); err != nil {
			t.Fatalf("Undo #%d: %v", i, err)
		}
	}
	if got := order(doc); !reflect.DeepEqual(got, p) {
		t.Fatalf("three undos should restore the original order")
	}
	if _, err := m.Undo(doc); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Redo(doc); err != nil {
			t.Fatalf("Redo #%d: %v", i, err)
		}
	}
	if got := order(doc); len(got) != 3 || got[0] != blank || got[1] != p[0] || got[2] != clone {
		t.Fatalf("redos should reproduce [blank, P0, clone]")
	}
}

func TestStaleEntryIsDropped(t *testing.T) {
	doc, p := newDoc(2)
	m := NewManager(Config{})
	m.AddUndoAction(NewAction(KindCopy, 0, 1, false, domain.NewPage(1, 1)))
	if _, err := m.Undo(doc); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("stale entry must be discarded")
	}
	if got := order(doc); !reflect.DeepEqual(got, p) {
		t.Fatalf("stale undo must not touch the document")
	}
}

func TestRestoringPresentPageIsStale(t *testing.T) {
	doc, p := newDoc(2)
	m := NewManager(Config{})
	// the "deleted" page is still in the document, e.g. after an external edit
	m.AddUndoAction(NewAction(KindDelete, 0, 0, false, p[1]))
	if _, err := m.Undo(doc); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if got := order(doc); !reflect.DeepEqual(got, p) {
		t.Fatalf("a page must never be inserted twice")
	}
}

func TestNewActionInvalidatesRedo(t *testing.T) {
	doc, _ := newDoc(1)
	m := NewManager(Config{})
	blank := domain.NewPage(1, 1)
	doc.Lock()
	doc.InsertPage(blank, 1)
	doc.Unlock()
	m.AddUndoAction(NewAction(KindInsert, 0, 1, false, blank))
	if _, err := m.Undo(doc); err != nil {
		t.Fatal(err)
	}
	if !m.CanRedo() {
		t.Fatalf("expected redo to be available")
	}
	m.AddUndoAction(NewAction(KindInsert, 0, 1, false, domain.NewPage(1, 1)))
	if m.CanRedo() {
		t.Fatalf("new action must clear redo")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxDepth: 2})
	for i := 0; i < 10; i++ {
		m.AddUndoAction(NewAction(KindInsert, 0, i, false, domain.NewPage(1, 1)))
	}
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("expected MaxDepth cap to limit to 2, got %d", depth)
	}
	a, _ := m.Peek()
	if a.To != 9 {
		t.Fatalf("newest entry must survive the cap, got To=%d", a.To)
	}

	one := NewAction(KindInsert, 0, 0, false, domain.NewPage(1, 1))
	m = NewManager(Config{MaxBytes: len(one.Snapshot) + 1})
	for i := 0; i < 5; i++ {
		m.AddUndoAction(NewAction(KindInsert, 0, i, false, domain.NewPage(1, 1)))
	}
	total, depth, _ := m.Stats()
	if depth != 1 || total > len(one.Snapshot)+1 {
		t.Fatalf("byte cap not enforced: depth=%d total=%d", depth, total)
	}
}

type memJournal struct {
	next    int64
	undone  map[int64]bool
	dropped []int64
	fail    bool
}

func (j *memJournal) Append(_ context.Context, _ Action) (int64, error) {
	if j.fail {
		return 0, errors.New("disk full")
	}
	j.next++
	return j.next, nil
}

func (j *memJournal) MarkUndone(_ context.Context, seq int64, undone bool) error {
	if j.undone == nil {
		j.undone = map[int64]bool{}
	}
	j.undone[seq] = undone
	return nil
}

func (j *memJournal) Drop(_ context.Context, seq int64) error {
	j.dropped = append(j.dropped, seq)
	return nil
}

func TestJournalMirrorsHistory(t *testing.T) {
	doc, _ := newDoc(1)
	j := &memJournal{}
	m := NewManager(Config{}, WithJournal(j))
	blank := domain.NewPage(1, 1)
	doc.Lock()
	doc.InsertPage(blank, 1)
	doc.Unlock()
	m.AddUndoAction(NewAction(KindInsert, 0, 1, false, blank))
	a, _ := m.Peek()
	if a.Seq != 1 {
		t.Fatalf("expected journal seq 1, got %d", a.Seq)
	}
	if _, err := m.Undo(doc); err != nil {
		t.Fatal(err)
	}
	if !j.undone[1] {
		t.Fatalf("journal entry not marked undone")
	}
	if _, err := m.Redo(doc); err != nil {
		t.Fatal(err)
	}
	if j.undone[1] {
		t.Fatalf("journal entry not marked redone")
	}

	j.fail = true
	m.AddUndoAction(NewAction(KindInsert, 0, 0, false, domain.NewPage(1, 1)))
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("journal failure must not lose the in-memory entry")
	}
}

func TestStaleEntryDroppedFromJournal(t *testing.T) {
	doc, _ := newDoc(2)
	j := &memJournal{}
	m := NewManager(Config{}, WithJournal(j))
	// the recorded page was never inserted, so the entry cannot be reverted
	m.AddUndoAction(NewAction(KindInsert, 0, 1, false, domain.NewPage(1, 1)))
	if _, err := m.Undo(doc); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if len(j.dropped) != 1 || j.dropped[0] != 1 {
		t.Fatalf("stale entry not dropped from journal: %v", j.dropped)
	}
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("stale entry must leave both stacks")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindMove, KindCopy, KindDelete, KindInsert} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("swap"); ok {
		t.Fatalf("unknown kind parsed")
	}
}
