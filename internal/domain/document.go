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

import "sync"

// NotFound is returned by IndexOf when the page is not part of the document.
const NotFound = -1

// Document is the ordered, lockable page list of an open deck.
//
// Lock is not reentrant. Query and mutation methods expect the caller to hold
// the lock and to release it before any notification is published.
type Document struct {
	mu    sync.Mutex
	pages []*Page
	// Name and default page size are carried through from the manifest.
	Name       string
	Metadata   Metadata
	PageWidth  float64
	PageHeight float64
}

// NewDocument builds a document over the given page handles.
func NewDocument(pages ...*Page) *Document {
	d := &Document{}
	d.pages = append(d.pages, pages...)
	return d
}

func (d *Document) Lock()   { d.mu.Lock() }
func (d *Document) Unlock() { d.mu.Unlock() }

// TryLock acquires the lock only if it is free. Crash handling uses it so a
// panic raised inside a critical section cannot deadlock the autosave.
func (d *Document) TryLock() bool { return d.mu.TryLock() }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// IndexOf returns the position of p (by handle) or NotFound.
func (d *Document) IndexOf(p *Page) int {
	if p == nil {
		return NotFound
	}
	for i, q := range d.pages {
		if q == p {
			return i
		}
	}
	return NotFound
}

// IndexOfID returns the position of the page with the given ID or NotFound.
func (d *Document) IndexOfID(id string) int {
	for i, q := range d.pages {
		if q.ID == id {
			return i
		}
	}
	return NotFound
}

// GetPage returns the page at index or nil when index is out of range.
func (d *Document) GetPage(index int) *Page {
	if index < 0 || index >= len(d.pages) {
		return nil
	}
	return d.pages[index]
}

// InsertPage inserts p at index, clamping index into [0, count].
func (d *Document) InsertPage(p *Page, index int) {
	if index < 0 {
		index = 0
	}
	if index > len(d.pages) {
		index = len(d.pages)
	}
	d.pages = append(d.pages, nil)
	copy(d.pages[index+1:], d.pages[index:])
	d.pages[index] = p
}

// DeletePage removes the page at index. Out-of-range indices are ignored.
func (d *Document) DeletePage(index int) {
	if index < 0 || index >= len(d.pages) {
		return
	}
	copy(d.pages[index:], d.pages[index+1:])
	d.pages[len(d.pages)-1] = nil
	d.pages = d.pages[:len(d.pages)-1]
}

// Pages returns a copy of the page handle slice.
func (d *Document) Pages() []*Page {
	return append([]*Page(nil), d.pages...)
}

// Document builds an in-memory document from the manifest. Pages are copied.
func (dk Deck) Document() *Document {
	d := &Document{Name: dk.Name, Metadata: dk.Metadata, PageWidth: dk.PageWidth, PageHeight: dk.PageHeight}
	d.pages = make([]*Page, len(dk.Pages))
	for i := range dk.Pages {
		p := dk.Pages[i]
		d.pages[i] = &p
	}
	return d
}

// DeckFromDocument snapshots the document back into a manifest.
// The caller must hold the document lock.
func DeckFromDocument(d *Document) Deck {
	dk := Deck{Name: d.Name, Metadata: d.Metadata, PageWidth: d.PageWidth, PageHeight: d.PageHeight}
	dk.Pages = make([]Page, len(d.pages))
	for i, p := range d.pages {
		dk.Pages[i] = *p
	}
	return dk
}
