/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package msgbox shows modal messages relative to an explicit parent and
// answers them through the event loop.
package msgbox

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"pagedeck/internal/eventloop"
	applog "pagedeck/internal/log"
)

// Response is the button a user chose.
type Response int

const (
	ResponseNone Response = iota
	ResponseOK
	ResponseCancel
	ResponseYes
	ResponseNo
)

func (r Response) String() string {
	switch r {
	case ResponseOK:
		return "ok"
	case ResponseCancel:
		return "cancel"
	case ResponseYes:
		return "yes"
	case ResponseNo:
		return "no"
	default:
		return "none"
	}
}

// Kind selects the icon/severity of a message.
type Kind int

const (
	Info Kind = iota
	Warning
	Error
	Question
)

// Button is one choice offered to the user.
type Button struct {
	Label    string
	Response Response
}

// Message describes a message box.
type Message struct {
	Kind    Kind
	Title   string
	Text    string
	Buttons []Button
	// Default is returned when the user gives no answer.
	Default Response
}

// Context is the parent a message box is shown for. It replaces a global
// "main window" reference: every call site passes the one it has.
type Context struct {
	// Parent names the owning window or command.
	Parent string
	Loop   *eventloop.Loop
}

// Default is the process-wide fallback context. Only the composition root
// should assign it.
var Default Context

// ErrNoLoop is returned when a Context without a loop is used.
var ErrNoLoop = errors.New("msgbox: context has no event loop")

// Presenter displays m and later calls reply exactly once, from any goroutine.
type Presenter interface {
	Present(mc Context, m Message, reply func(Response))
}

// Box shows messages through a Presenter.
type Box struct {
	p   Presenter
	log *slog.Logger
}

// New creates a Box.
func New(p Presenter) *Box {
	return &Box{p: p, log: applog.WithComponent("msgbox")}
}

// Show presents m and blocks the calling task until it is answered. When
// called from a task on mc.Loop, the loop keeps running other tasks
// meanwhile; the reply is delivered as a loop task.
func (b *Box) Show(ctx context.Context, mc Context, m Message) (Response, error) {
	if mc.Loop == nil {
		return ResponseNone, ErrNoLoop
	}
	if len(m.Buttons) == 0 {
		m.Buttons = []Button{{Label: "OK", Response: ResponseOK}}
	}
	var (
		once sync.Once
		resp = m.Default
		done = make(chan struct{})
	)
	b.p.Present(mc, m, func(r Response) {
		once.Do(func() {
			err := mc.Loop.Post(func(context.Context) {
				resp = r
				close(done)
			})
			if err != nil {
				// loop gone; Wait returns ErrStopped
				b.log.Debug("reply after loop stop", slog.String("response", r.String()))
			}
		})
	})
	if err := mc.Loop.Wait(ctx, done); err != nil {
		return m.Default, err
	}
	b.log.Debug("message answered", slog.String("title", m.Title), slog.String("response", resp.String()))
	return resp, nil
}

// Confirm asks a yes/no question. Errors count as "no".
func (b *Box) Confirm(ctx context.Context, mc Context, title, text string) bool {
	r, err := b.Show(ctx, mc, Message{
		Kind:    Question,
		Title:   title,
		Text:    text,
		Buttons: []Button{{Label: "Yes", Response: ResponseYes}, {Label: "No", Response: ResponseNo}},
		Default: ResponseNo,
	})
	return err == nil && r == ResponseYes
}

// Terminal presents messages as prompts on a text stream.
type Terminal struct {
	Out io.Writer
	In  io.Reader

	mu sync.Mutex
	sc *bufio.Scanner
}

// Present writes the prompt and reads the answer on a separate goroutine.
func (t *Terminal) Present(mc Context, m Message, reply func(Response)) {
	labels := make([]string, len(m.Buttons))
	for i, b := range m.Buttons {
		labels[i] = b.Label
	}
	prefix := ""
	if mc.Parent != "" {
		prefix = mc.Parent + ": "
	}
	_, _ = fmt.Fprintf(t.Out, "%s%s\n%s [%s] ", prefix, m.Title, m.Text, strings.Join(labels, "/"))
	go func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.sc == nil {
			t.sc = bufio.NewScanner(t.In)
		}
		if !t.sc.Scan() {
			reply(m.Default)
			return
		}
		reply(Match(m, t.sc.Text()))
	}()
}

// Match maps typed input to a button by label or first letter. Unknown or
// empty input yields m.Default.
func Match(m Message, input string) Response {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return m.Default
	}
	for _, b := range m.Buttons {
		label := strings.ToLower(b.Label)
		if in == label || (len(in) == 1 && strings.HasPrefix(label, in)) {
			return b.Response
		}
	}
	return m.Default
}
