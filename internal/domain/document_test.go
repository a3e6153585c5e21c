/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import "testing"

func TestDocumentInsertDeleteIndexOf(t *testing.T) {
	a, b, c := NewPage(1, 1), NewPage(1, 1), NewPage(1, 1)
	d := NewDocument(a, c)
	d.Lock()
	d.InsertPage(b, 1)
	if d.PageCount() != 3 || d.GetPage(1) != b || d.IndexOf(c) != 2 {
		t.Fatalf("insert in the middle failed")
	}
	d.DeletePage(0)
	if d.PageCount() != 2 || d.IndexOf(a) != NotFound || d.IndexOf(b) != 0 {
		t.Fatalf("delete at head failed")
	}
	d.DeletePage(5)
	if d.PageCount() != 2 {
		t.Fatalf("out of range delete must be ignored")
	}
	if d.GetPage(-1) != nil || d.GetPage(2) != nil {
		t.Fatalf("out of range GetPage must return nil")
	}
	if d.IndexOfID(c.ID) != 1 {
		t.Fatalf("IndexOfID mismatch")
	}
	d.Unlock()
}

func TestDeckDocumentRoundTrip(t *testing.T) {
	dk := Deck{Name: "n", PageWidth: 10, PageHeight: 20, Pages: []Page{*NewPage(1, 1), *NewPage(2, 2)}}
	doc := dk.Document()
	doc.Lock()
	back := DeckFromDocument(doc)
	doc.Unlock()
	if back.Name != "n" || back.PageWidth != 10 || len(back.Pages) != 2 || back.Pages[1].ID != dk.Pages[1].ID {
		t.Fatalf("deck/document round trip mismatch: %+v", back)
	}
}
