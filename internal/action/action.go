/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package action defines the closed set of page actions a user can trigger
// and dispatches them to the page-collection editor.
package action

import (
	"fmt"
	"strings"
)

// Action identifies one user-triggered page action.
type Action uint8

const (
	None Action = iota
	MoveUp
	MoveDown
	Copy
	Delete
	InsertBefore
	InsertAfter

	numActions
)

var names = [numActions]string{
	None:         "none",
	MoveUp:       "move-up",
	MoveDown:     "move-down",
	Copy:         "copy",
	Delete:       "delete",
	InsertBefore: "insert-before",
	InsertAfter:  "insert-after",
}

func (a Action) String() string {
	if a < numActions {
		return names[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Parse maps a CLI/menu name such as "move-up" to its Action.
func Parse(s string) (Action, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, n := range names {
		if n == s {
			return Action(a), true
		}
	}
	return None, false
}

// All lists every action except None, in toolbar order.
func All() []Action {
	out := make([]Action, 0, numActions-1)
	for a := MoveUp; a < numActions; a++ {
		out = append(out, a)
	}
	return out
}

// Set is a bitmask of actions.
type Set uint16

// Of builds a set from the given actions.
func Of(actions ...Action) Set {
	var s Set
	for _, a := range actions {
		s = s.With(a)
	}
	return s
}

func (s Set) With(a Action) Set {
	if a == None || a >= numActions {
		return s
	}
	return s | 1<<a
}

func (s Set) Has(a Action) bool {
	return a != None && a < numActions && s&(1<<a) != 0
}

func (s Set) Empty() bool { return s == 0 }

func (s Set) String() string {
	var parts []string
	for _, a := range All() {
		if s.Has(a) {
			parts = append(parts, a.String())
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
