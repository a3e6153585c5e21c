/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package action

import (
	"log/slog"

	applog "pagedeck/internal/log"
)

// Editor is the subset of the page-collection editor the dispatcher drives.
type Editor interface {
	CurrentIndex() int
	MoveUp(index int) bool
	MoveDown(index int) bool
	Duplicate(index int) bool
	Delete(index int) bool
	InsertBefore(index int) bool
	InsertAfter(index int) bool
}

// Observer is told about every dispatched action and whether it applied.
type Observer func(a Action, index int, ok bool)

type handler func(ed Editor, index int) bool

// table is indexed by Action; None stays nil. It is fixed at compile time.
var table = [numActions]handler{
	MoveUp:       Editor.MoveUp,
	MoveDown:     Editor.MoveDown,
	Copy:         Editor.Duplicate,
	Delete:       Editor.Delete,
	InsertBefore: Editor.InsertBefore,
	InsertAfter:  Editor.InsertAfter,
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithGate makes the dispatcher ignore actions not in the set returned by
// gate, usually the preview replica's available actions.
func WithGate(gate func() Set) Option { return func(d *Dispatcher) { d.gate = gate } }

// WithObserver registers o to be called after every dispatch.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

// Dispatcher maps actions to editor operations on the current page.
type Dispatcher struct {
	ed        Editor
	gate      func() Set
	observers []Observer
	log       *slog.Logger
}

// NewDispatcher creates a dispatcher for ed.
func NewDispatcher(ed Editor, opts ...Option) *Dispatcher {
	d := &Dispatcher{ed: ed, log: applog.WithComponent("action")}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ActionPerformed applies a to the editor's current page. None, unknown and
// gated actions are no-ops returning false.
func (d *Dispatcher) ActionPerformed(a Action) bool {
	if a == None || a >= numActions {
		return false
	}
	if d.gate != nil && !d.gate().Has(a) {
		d.log.Debug("action disabled", slog.String("action", a.String()))
		return false
	}
	index := d.ed.CurrentIndex()
	ok := table[a](d.ed, index)
	d.log.Debug("action performed", slog.String("action", a.String()), slog.Int("index", index), slog.Bool("ok", ok))
	for _, o := range d.observers {
		o(a, index, ok)
	}
	return ok
}
