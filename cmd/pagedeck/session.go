/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"pagedeck/internal/action"
	"pagedeck/internal/config"
	"pagedeck/internal/domain"
	"pagedeck/internal/event"
	"pagedeck/internal/eventloop"
	applog "pagedeck/internal/log"
	"pagedeck/internal/msgbox"
	"pagedeck/internal/pages"
	"pagedeck/internal/preview"
	"pagedeck/internal/storage"
	"pagedeck/internal/telemetry"
	"pagedeck/internal/undo"
)

// textToolbar remembers what the replica last enabled so commands can print it.
type textToolbar struct {
	enabled action.Set
	hidden  bool
}

func (t *textToolbar) SetEnabled(s action.Set) { t.enabled = s }
func (t *textToolbar) SetHidden(hidden bool)   { t.hidden = hidden }

// session is one opened deck with every component wired to the same bus.
type session struct {
	cfg      config.AppConfig
	dh       *storage.DeckHandle
	doc      *domain.Document
	bus      *event.Bus
	journal  *storage.Journal
	undo     *undo.Manager
	editor   *pages.Editor
	replica  *preview.Replica
	toolbar  *textToolbar
	dispatch *action.Dispatcher
	loop     *eventloop.Loop
	box      *msgbox.Box
	dirty    bool
	unsub    []func()
	log      *slog.Logger
}

func openSession(ctx context.Context, cfg config.AppConfig, root string) (*session, error) {
	dh, err := storage.Open(root)
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:     cfg,
		dh:      dh,
		doc:     dh.Deck.Document(),
		bus:     event.NewBus(),
		toolbar: &textToolbar{},
		loop:    eventloop.New(64),
		box:     msgbox.New(&msgbox.Terminal{Out: os.Stdout, In: os.Stdin}),
		log:     applog.WithComponent("session").With(slog.String("deck", dh.Deck.Name)),
	}

	j, err := storage.OpenJournal(ctx, dh.Root, dh.Deck.Name)
	if err != nil {
		// history is a convenience; the deck still opens without it
		s.log.Warn("journal unavailable", slog.Any("err", err))
	} else {
		s.journal = j
	}
	opts := []undo.Option{undo.WithListener(s.bus)}
	if s.journal != nil {
		opts = append(opts, undo.WithJournal(s.journal))
	}
	s.undo = undo.NewManager(undo.Config{MaxDepth: cfg.Editor.UndoMaxDepth, MaxBytes: cfg.Editor.UndoMaxBytes}, opts...)
	if s.journal != nil {
		u, r, err := s.journal.Load(ctx, cfg.Editor.UndoMaxDepth)
		if err != nil {
			s.log.Warn("history not loaded", slog.Any("err", err))
		} else {
			s.undo.Load(u, r)
		}
	}

	s.editor = pages.NewEditor(s.doc, s.undo, s.bus, pages.WithPageSize(cfg.Editor.PageWidth, cfg.Editor.PageHeight))
	s.unsub = append(s.unsub, s.editor.Follow(s.bus))
	s.replica = preview.New(s.editor, nil, preview.Options{
		Debug:   cfg.Editor.Debug,
		Zoom:    cfg.Preview.Zoom,
		Toolbar: s.toolbar,
	})
	s.unsub = append(s.unsub, s.replica.Attach(s.bus))
	s.unsub = append(s.unsub, s.bus.Subscribe(event.Funcs{
		OnInserted:    func(int) { s.dirty = true },
		OnDeleted:     func(int) { s.dirty = true },
		OnSizeChanged: func(int) { s.dirty = true },
	}))
	s.dispatch = action.NewDispatcher(s.editor,
		action.WithGate(s.replica.Available),
		action.WithObserver(func(a action.Action, index int, ok bool) {
			telemetry.PageAction(a.String(), ok)
		}),
	)
	msgbox.Default = msgbox.Context{Parent: "pagedeck", Loop: s.loop}
	s.log.Debug("session opened", slog.Int("pages", s.replica.Len()))
	return s, nil
}

// run executes fn as a task on the session loop and returns its error.
func (s *session) run(ctx context.Context, fn func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	if err := s.loop.Post(func(c context.Context) {
		defer s.loop.Quit()
		errc <- fn(c)
	}); err != nil {
		return err
	}
	if err := s.loop.Run(ctx); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	default:
		return eventloop.ErrStopped
	}
}

// selectPage makes the 1-based page number current in editor and replica.
func (s *session) selectPage(n int) error {
	if !s.editor.SetCurrent(n - 1) {
		return fmt.Errorf("page %d out of range (deck has %d pages)", n, s.replica.Len())
	}
	return nil
}

// perform applies a through the dispatcher, asking first before a delete.
func (s *session) perform(ctx context.Context, a action.Action) (bool, error) {
	if a == action.Delete && s.cfg.General.ConfirmDelete {
		text := fmt.Sprintf("Delete page %d of %d?", s.editor.CurrentIndex()+1, s.replica.Len())
		if !s.box.Confirm(ctx, msgbox.Default, "Delete page", text) {
			return false, nil
		}
	}
	return s.dispatch.ActionPerformed(a), nil
}

// save writes the manifest when the document changed.
func (s *session) save() error {
	if !s.dirty {
		return nil
	}
	s.doc.Lock()
	s.dh.Deck = domain.DeckFromDocument(s.doc)
	s.doc.Unlock()
	if err := storage.Save(s.dh); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// list prints the replica, marking the selection, followed by the enabled actions.
func (s *session) list(w io.Writer) {
	fmt.Fprintf(w, "Deck: %s (%d pages)\n", s.dh.Deck.Name, s.replica.Len())
	for i := 0; i < s.replica.Len(); i++ {
		e := s.replica.Entry(i)
		mark := " "
		if e.Selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %3d  %s  %gx%g pt  preview %.0fx%.0f px  %d elements\n",
			mark, i+1, shortID(e.Page.ID), e.Page.Width, e.Page.Height, e.Size.W, e.Size.H, e.Page.ElementCount())
	}
	if s.toolbar.hidden {
		fmt.Fprintln(w, "Actions: (no page selected)")
		return
	}
	names := make([]string, 0, 8)
	for _, a := range action.All() {
		if s.toolbar.enabled.Has(a) {
			names = append(names, a.String())
		}
	}
	fmt.Fprintf(w, "Actions: %s\n", strings.Join(names, ", "))
}

func (s *session) close(ctx context.Context) {
	for i := len(s.unsub) - 1; i >= 0; i-- {
		s.unsub[i]()
	}
	if s.journal == nil {
		return
	}
	if s.cfg.Editor.UndoMaxDepth > 0 {
		if n, err := s.journal.Prune(ctx, s.cfg.Editor.UndoMaxDepth); err != nil {
			s.log.Warn("history prune failed", slog.Any("err", err))
		} else if n > 0 {
			s.log.Debug("history pruned", slog.Int64("rows", n))
		}
	}
	if err := s.journal.Close(); err != nil {
		s.log.Warn("journal close failed", slog.Any("err", err))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
