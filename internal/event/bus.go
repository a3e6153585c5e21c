/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package event carries structural page notifications from the editor and
// the undo log to the views that mirror the document.
package event

import "sync"

// Listener receives page notifications. Handlers run synchronously on the
// publishing goroutine, after the document lock has been released, and may
// re-enter editor or replica operations.
type Listener interface {
	PageInserted(index int)
	PageDeleted(index int)
	PageSelected(index int)
	PageSizeChanged(index int)
	PagesBulkChanged()
}

// Funcs adapts optional callbacks to Listener. Nil fields are skipped.
type Funcs struct {
	OnInserted    func(index int)
	OnDeleted     func(index int)
	OnSelected    func(index int)
	OnSizeChanged func(index int)
	OnBulkChanged func()
}

func (f Funcs) PageInserted(i int) {
	if f.OnInserted != nil {
		f.OnInserted(i)
	}
}

func (f Funcs) PageDeleted(i int) {
	if f.OnDeleted != nil {
		f.OnDeleted(i)
	}
}

func (f Funcs) PageSelected(i int) {
	if f.OnSelected != nil {
		f.OnSelected(i)
	}
}

func (f Funcs) PageSizeChanged(i int) {
	if f.OnSizeChanged != nil {
		f.OnSizeChanged(i)
	}
}

func (f Funcs) PagesBulkChanged() {
	if f.OnBulkChanged != nil {
		f.OnBulkChanged()
	}
}

// Bus fans notifications out to subscribed listeners in subscription order.
// A Bus is itself a Listener, so publishers only depend on the interface.
type Bus struct {
	mu        sync.RWMutex
	listeners []*subscription
}

type subscription struct{ l Listener }

// NewBus creates an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe adds l and returns a function that removes it again.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	s := &subscription{l: l}
	b.mu.Lock()
	b.listeners = append(b.listeners, s)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, x := range b.listeners {
			if x == s {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// snapshot copies the listener list so handlers may (un)subscribe during dispatch.
func (b *Bus) snapshot() []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*subscription(nil), b.listeners...)
}

func (b *Bus) PageInserted(i int) {
	for _, s := range b.snapshot() {
		s.l.PageInserted(i)
	}
}

func (b *Bus) PageDeleted(i int) {
	for _, s := range b.snapshot() {
		s.l.PageDeleted(i)
	}
}

func (b *Bus) PageSelected(i int) {
	for _, s := range b.snapshot() {
		s.l.PageSelected(i)
	}
}

func (b *Bus) PageSizeChanged(i int) {
	for _, s := range b.snapshot() {
		s.l.PageSizeChanged(i)
	}
}

func (b *Bus) PagesBulkChanged() {
	for _, s := range b.snapshot() {
		s.l.PagesBulkChanged()
	}
}
