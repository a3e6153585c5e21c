/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and an autosave of the open deck.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"pagedeck/internal/domain"
	applog "pagedeck/internal/log"
	"pagedeck/internal/storage"
	"pagedeck/internal/telemetry"
	"pagedeck/internal/version"
)

// exitFn is replaced in tests so Recover does not terminate the process.
var exitFn = os.Exit

// Recover captures a panic, logs it with its stack, writes a crash report and
// autosaves the deck. When doc is given and not locked, its current pages are
// saved instead of the last loaded manifest.
//
// Usage: defer crash.Recover(dh, doc)
func Recover(dh *storage.DeckHandle, doc *domain.Document) {
	if r := recover(); r != nil {
		handle(r, dh, doc)
	}
}

// RecoverWith is Recover for callers that open the deck after deferring.
// src is only consulted after a panic and may return nil values.
//
// Usage: defer crash.RecoverWith(func() (*storage.DeckHandle, *domain.Document) { ... })
func RecoverWith(src func() (*storage.DeckHandle, *domain.Document)) {
	if r := recover(); r != nil {
		dh, doc := src()
		handle(r, dh, doc)
	}
}

func handle(r any, dh *storage.DeckHandle, doc *domain.Document) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	if dh != nil && doc != nil && doc.TryLock() {
		dh.Deck = domain.DeckFromDocument(doc)
		doc.Unlock()
	}
	reportPath, _ := writeReport(dh, r, stack)
	if dh != nil {
		if path, err := storage.AutosaveCrashSnapshot(dh); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(dh *storage.DeckHandle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if dh != nil && dh.Root != "" {
		dir = filepath.Join(dh.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PageDeck Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if dh != nil {
		_, _ = fmt.Fprintf(&buf, "DeckRoot: %s\n", dh.Root)
		_, _ = fmt.Fprintf(&buf, "Manifest: %s\n", dh.ManifestPath)
		_, _ = fmt.Fprintf(&buf, "Pages: %d\n", len(dh.Deck.Pages))
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
