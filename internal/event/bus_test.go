/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package event

import (
	"fmt"
	"reflect"
	"testing"
)

type recorder struct{ got []string }

func (r *recorder) PageInserted(i int)    { r.got = append(r.got, fmt.Sprintf("ins(%d)", i)) }
func (r *recorder) PageDeleted(i int)     { r.got = append(r.got, fmt.Sprintf("del(%d)", i)) }
func (r *recorder) PageSelected(i int)    { r.got = append(r.got, fmt.Sprintf("sel(%d)", i)) }
func (r *recorder) PageSizeChanged(i int) { r.got = append(r.got, fmt.Sprintf("size(%d)", i)) }
func (r *recorder) PagesBulkChanged()     { r.got = append(r.got, "bulk") }

func TestBusDeliversInOrder(t *testing.T) {
	b := NewBus()
	r := &recorder{}
	b.Subscribe(r)
	b.PageDeleted(2)
	b.PageInserted(1)
	b.PageSelected(1)
	b.PageSizeChanged(0)
	b.PagesBulkChanged()
	want := []string{"del(2)", "ins(1)", "sel(1)", "size(0)", "bulk"}
	if !reflect.DeepEqual(r.got, want) {
		t.Fatalf("got %v want %v", r.got, want)
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	b := NewBus()
	var calls int
	var unsub func()
	unsub = b.Subscribe(Funcs{OnSelected: func(int) {
		calls++
		unsub()
	}})
	other := &recorder{}
	b.Subscribe(other)

	b.PageSelected(0)
	b.PageSelected(1)
	if calls != 1 {
		t.Fatalf("self-unsubscribing listener called %d times", calls)
	}
	if len(other.got) != 2 {
		t.Fatalf("second listener must see both events, got %v", other.got)
	}
}

func TestFuncsSkipsNilCallbacks(t *testing.T) {
	var f Funcs
	f.PageInserted(0)
	f.PageDeleted(0)
	f.PageSelected(0)
	f.PageSizeChanged(0)
	f.PagesBulkChanged()
}
