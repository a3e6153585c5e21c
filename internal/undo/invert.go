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

import "pagedeck/internal/domain"

// delta is the structural change an undo/redo produced; -1 marks "none".
type delta struct {
	deleted  int
	inserted int
	selected int
}

var noDelta = delta{deleted: -1, inserted: -1, selected: -1}

func samePage(p, want *domain.Page) bool {
	return p != nil && want != nil && p.ID == want.ID
}

// restorable reports whether p can be put back into t: it must be known and
// not already part of the document.
func restorable(t Target, p *domain.Page) bool {
	return p != nil && t.IndexOfID(p.ID) == domain.NotFound
}

// swap moves the page at from to to. Both indices must be valid.
func swap(t Target, from, to int) {
	p := t.GetPage(from)
	t.DeletePage(from)
	t.InsertPage(p, to)
}

func validSwap(t Target, a Action) bool {
	n := t.PageCount()
	return a.From >= 0 && a.To >= 0 && a.From < n && a.To < n && a.From != a.To
}

// revert applies the inverse of a under the document lock.
func revert(t Target, a Action) (delta, error) {
	t.Lock()
	defer t.Unlock()
	d := noDelta
	switch a.Kind {
	case KindMove:
		if !validSwap(t, a) {
			return d, ErrStale
		}
		at := a.To
		if a.Reversed {
			at = a.From
		}
		if !samePage(t.GetPage(at), a.Page) {
			return d, ErrStale
		}
		swap(t, a.From, a.To)
		d.deleted, d.inserted = a.From, a.To
		d.selected = a.From
		if a.Reversed {
			d.selected = a.To
		}
	case KindCopy, KindInsert:
		if !samePage(t.GetPage(a.To), a.Page) {
			return d, ErrStale
		}
		t.DeletePage(a.To)
		d.deleted = a.To
		d.selected = selectAfterDelete(a.To, t.PageCount())
		if a.Kind == KindCopy && a.To > 0 {
			// back to the page the copy was made from
			d.selected = a.To - 1
		}
	case KindDelete:
		if !restorable(t, a.Page) || a.From < 0 || a.From > t.PageCount() {
			return d, ErrStale
		}
		t.InsertPage(a.Page, a.From)
		d.inserted, d.selected = a.From, a.From
	default:
		return d, ErrStale
	}
	return d, nil
}

// reapply performs a again under the document lock.
func reapply(t Target, a Action) (delta, error) {
	t.Lock()
	defer t.Unlock()
	d := noDelta
	switch a.Kind {
	case KindMove:
		if !validSwap(t, a) {
			return d, ErrStale
		}
		at := a.From
		if a.Reversed {
			at = a.To
		}
		if !samePage(t.GetPage(at), a.Page) {
			return d, ErrStale
		}
		swap(t, a.From, a.To)
		d.deleted, d.inserted = a.From, a.To
		d.selected = a.To
		if a.Reversed {
			d.selected = a.From
		}
	case KindCopy, KindInsert:
		if !restorable(t, a.Page) || a.To < 0 || a.To > t.PageCount() {
			return d, ErrStale
		}
		t.InsertPage(a.Page, a.To)
		d.inserted, d.selected = a.To, a.To
	case KindDelete:
		if t.PageCount() <= 1 || !samePage(t.GetPage(a.From), a.Page) {
			return d, ErrStale
		}
		t.DeletePage(a.From)
		d.deleted = a.From
		d.selected = selectAfterDelete(a.From, t.PageCount())
	default:
		return d, ErrStale
	}
	return d, nil
}

func selectAfterDelete(index, count int) int {
	if count == 0 {
		return -1
	}
	if index >= count {
		return count - 1
	}
	return index
}
