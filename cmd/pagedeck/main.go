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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"pagedeck/internal/action"
	"pagedeck/internal/clipboard"
	"pagedeck/internal/config"
	"pagedeck/internal/crash"
	"pagedeck/internal/domain"
	applog "pagedeck/internal/log"
	"pagedeck/internal/storage"
	"pagedeck/internal/telemetry"
	"pagedeck/internal/undo"
	"pagedeck/internal/version"
	"pagedeck/internal/watch"
)

func usage() {
	fmt.Println("PageDeck")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagedeck version|-v|--version            Show version")
	fmt.Println("  pagedeck init <dir> <name> [pages]        Create a new deck at <dir> with [pages] blank pages")
	fmt.Println("  pagedeck open <dir>                       Open deck at <dir> and print summary")
	fmt.Println("  pagedeck list <dir> [page]                List pages, selecting [page]")
	fmt.Println("  pagedeck act <dir> <page> <action>        Apply an action to <page>:")
	fmt.Println("                                            move-up, move-down, copy, delete, insert-before, insert-after")
	fmt.Println("  pagedeck undo <dir>                       Undo the last page edit")
	fmt.Println("  pagedeck redo <dir>                       Redo the last undone page edit")
	fmt.Println("  pagedeck copy <dir> <page>                Copy <page> to the system clipboard")
	fmt.Println("  pagedeck paste <dir> <page>               Insert the clipboard contents before <page>")
	fmt.Println("  pagedeck watch <dir>                      Print the page list whenever the manifest changes")
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func need(args []string, n int, what string) {
	if len(args) < n {
		fmt.Println(args[1], "requires", what)
		usage()
		os.Exit(2)
	}
}

// needClipboard exits when the system clipboard cannot be used.
func needClipboard() {
	if clipboard.Unsupported() {
		fmt.Println("Error:", clipboard.ErrUnsupported)
		os.Exit(1)
	}
}

func pageArg(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		fmt.Println("invalid page number:", s)
		os.Exit(2)
	}
	return n
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
		cfg = config.Defaults()
	}
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)

	var s *session
	defer crash.RecoverWith(func() (*storage.DeckHandle, *domain.Document) {
		if s == nil {
			return nil, nil
		}
		return s.dh, s.doc
	})

	ctx := context.Background()
	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	open := func(dir string) *session {
		abs, _ := filepath.Abs(dir)
		ctx = applog.WithDeckRoot(ctx, abs)
		sess, err := openSession(ctx, cfg, abs)
		if err != nil {
			fail(l, "open failed", err)
		}
		return sess
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("PageDeck")
		fmt.Println(version.String())
		return
	case "init":
		need(args, 4, "<dir> and <name>")
		abs, _ := filepath.Abs(args[2])
		count := 1
		if len(args) > 4 {
			count = pageArg(args[4])
		}
		dk := domain.Deck{Name: args[3], PageWidth: cfg.Editor.PageWidth, PageHeight: cfg.Editor.PageHeight}
		for i := 0; i < count; i++ {
			dk.Pages = append(dk.Pages, *domain.NewPage(dk.PageWidth, dk.PageHeight))
		}
		l.Info("init deck", slog.String("root", abs), slog.String("name", dk.Name), slog.Int("pages", count))
		if _, err := storage.InitDeck(abs, dk); err != nil {
			fail(l, "init failed", err)
		}
		fmt.Println("Created deck at", abs)
		return
	case "open":
		need(args, 3, "<dir>")
		s = open(args[2])
		defer s.close(ctx)
		fmt.Println("Opened deck:")
		fmt.Println("  Name:", s.dh.Deck.Name)
		fmt.Println("  Root:", s.dh.Root)
		fmt.Println("  Manifest:", s.dh.ManifestPath)
		fmt.Println("  Pages:", s.replica.Len())
		fmt.Printf("  Undo: %v  Redo: %v\n", s.undo.CanUndo(), s.undo.CanRedo())
		return
	case "list":
		need(args, 3, "<dir>")
		s = open(args[2])
		defer s.close(ctx)
		if len(args) > 3 {
			if err := s.selectPage(pageArg(args[3])); err != nil {
				fail(l, "select failed", err)
			}
		}
		s.list(os.Stdout)
		return
	case "act":
		need(args, 5, "<dir>, <page> and <action>")
		a, ok := action.Parse(args[4])
		if !ok {
			fmt.Println("unknown action:", args[4])
			usage()
			os.Exit(2)
		}
		s = open(args[2])
		defer s.close(ctx)
		err := s.run(ctx, func(ctx context.Context) error {
			if err := s.selectPage(pageArg(args[3])); err != nil {
				return err
			}
			applied, err := s.perform(ctx, a)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Printf("%s not applied to page %s\n", a, args[3])
				return nil
			}
			if err := s.save(); err != nil {
				return err
			}
			s.list(os.Stdout)
			return nil
		})
		if err != nil {
			fail(l, "action failed", err)
		}
		telemetry.Flush(ctx)
		return
	case "undo", "redo":
		need(args, 3, "<dir>")
		s = open(args[2])
		defer s.close(ctx)
		apply, empty := s.undo.Undo, "Nothing to undo"
		if args[1] == "redo" {
			apply, empty = s.undo.Redo, "Nothing to redo"
		}
		a, err := apply(s.doc)
		switch {
		case errors.Is(err, undo.ErrEmpty):
			fmt.Println(empty)
			return
		case errors.Is(err, undo.ErrStale):
			l.Warn("history entry dropped", slog.Any("err", err))
			fmt.Println("The deck changed outside this history; entry dropped")
			return
		case err != nil:
			fail(l, args[1]+" failed", err)
		}
		if err := s.save(); err != nil {
			fail(l, "save failed", err)
		}
		fmt.Printf("%s: %s\n", args[1], a.Kind)
		s.list(os.Stdout)
		return
	case "copy":
		need(args, 4, "<dir> and <page>")
		needClipboard()
		s = open(args[2])
		defer s.close(ctx)
		if err := s.selectPage(pageArg(args[3])); err != nil {
			fail(l, "select failed", err)
		}
		p := s.replica.Entry(s.replica.Selected()).Page
		data, err := clipboard.FromPage(p)
		if err == nil {
			err = clipboard.System{}.Write(data)
		}
		if err != nil {
			fail(l, "copy failed", err)
		}
		fmt.Println("Copied page", args[3])
		return
	case "paste":
		need(args, 4, "<dir> and <page>")
		needClipboard()
		s = open(args[2])
		defer s.close(ctx)
		at := pageArg(args[3]) - 1
		payload, err := clipboard.Read(clipboard.System{})
		if err != nil {
			fail(l, "paste failed", err)
		}
		w, h := s.dh.Deck.PageWidth, s.dh.Deck.PageHeight
		if e := s.replica.Entry(min(at, s.replica.Len()-1)); e != nil {
			w, h = e.Page.Width, e.Page.Height
		}
		p, err := clipboard.ToPage(payload, w, h)
		if err != nil {
			fail(l, "paste failed", err)
		}
		if !s.editor.Paste(at, p) {
			fail(l, "paste failed", fmt.Errorf("page %d out of range (deck has %d pages)", at+1, s.replica.Len()))
		}
		if err := s.save(); err != nil {
			fail(l, "save failed", err)
		}
		s.list(os.Stdout)
		return
	case "watch":
		need(args, 3, "<dir>")
		s = open(args[2])
		defer s.close(ctx)
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		if err := s.watch(sigCtx, watch.DefaultDebounce); err != nil {
			fail(l, "watch failed", err)
		}
		return
	default:
		usage()
		os.Exit(2)
	}
}

// watch reloads the deck on manifest changes until ctx is done.
func (s *session) watch(ctx context.Context, debounce time.Duration) error {
	w := watch.New(s.dh.ManifestPath, func() {
		_ = s.loop.Post(func(context.Context) { s.reload() })
	}, watch.WithDebounce(debounce))
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Close()
	go func() {
		for {
			select {
			case err := <-w.Errors():
				s.log.Warn("watch error", slog.Any("err", err))
			case <-ctx.Done():
				return
			}
		}
	}()
	s.list(os.Stdout)
	err := s.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *session) reload() {
	dh, err := storage.Open(s.dh.Root)
	if err != nil {
		s.log.Warn("reload failed", slog.Any("err", err))
		return
	}
	s.dh = dh
	s.doc = dh.Deck.Document()
	s.editor.Reload(s.doc)
	fmt.Println()
	s.list(os.Stdout)
}
