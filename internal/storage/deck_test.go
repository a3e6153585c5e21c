/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagedeck/internal/domain"
)

func sampleDeck(name string, pages int) domain.Deck {
	d := domain.Deck{Name: name, PageWidth: 595, PageHeight: 842}
	for i := 0; i < pages; i++ {
		d.Pages = append(d.Pages, *domain.NewPage(595, 842))
	}
	return d
}

func TestInitDeckCreatesStructureAndManifest(t *testing.T) {
	root := t.TempDir()
	deck := sampleDeck("Test Deck", 2)

	dh, err := InitDeck(root, deck)
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	b, err := os.ReadFile(dh.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got domain.Deck
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.Name != deck.Name || len(got.Pages) != 2 || got.Pages[1].ID != deck.Pages[1].ID {
		t.Fatalf("manifest mismatch: %+v", got)
	}
	for _, d := range []string{"assets", BackupsDirName} {
		p := filepath.Join(root, d)
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", p)
		}
	}
}

func TestInitDeckRequiresRoot(t *testing.T) {
	if _, err := InitDeck("  ", sampleDeck("x", 1)); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestEmptyDeckIsValid(t *testing.T) {
	dh, err := InitDeck(t.TempDir(), domain.Deck{Name: "Empty"})
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	opened, err := Open(dh.Root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Deck.Pages == nil || len(opened.Deck.Pages) != 0 {
		t.Fatalf("expected an empty page list")
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDeck(root, sampleDeck("Backup Test", 1))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	dh.Deck.Metadata.Notes = "changed"
	if err := Save(dh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var bakCount int
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), ManifestFileName+".") && strings.HasSuffix(e.Name(), ".bak") {
			bakCount++
		}
	}
	if bakCount == 0 {
		t.Fatalf("expected at least one backup file, found 0")
	}
}

func TestSaveRejectsInvalidDeck(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDeck(root, sampleDeck("Valid", 1))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	dh.Deck.Pages[0].Width = 0
	if err := Save(dh); !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
	opened, err := Open(root)
	if err != nil || opened.Deck.Pages[0].Width != 595 {
		t.Fatalf("invalid save must leave the manifest untouched: %v", err)
	}
}

func TestOpenFallsBackToLatestBackupOnCorruption(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDeck(root, sampleDeck("Open From Backup", 1))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	dh.Deck.Metadata.Notes = "touch"
	if err := Save(dh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(dh.ManifestPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Deck.Name != "Open From Backup" {
		t.Fatalf("opened deck name mismatch: %q", opened.Deck.Name)
	}
}

func TestOpenRejectsSchemaViolationWithoutBackup(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(`{"name": "", "pages": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); err == nil {
		t.Fatalf("expected an error for an invalid manifest without backups")
	}
}

func TestAutosaveCrashSnapshotWritesFile(t *testing.T) {
	dh, err := InitDeck(t.TempDir(), sampleDeck("Crash Snapshot", 1))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	path, err := AutosaveCrashSnapshot(dh)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if err := Validate(b); err != nil {
		t.Fatalf("crash snapshot is not a valid manifest: %v", err)
	}
	if _, err := AutosaveCrashSnapshot(nil); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}

func TestDocumentRoundTripKeepsOrder(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDeck(root, sampleDeck("Order", 3))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	doc := dh.Deck.Document()
	doc.Lock()
	p := doc.GetPage(2)
	doc.DeletePage(2)
	doc.InsertPage(p, 0)
	dh.Deck = domain.DeckFromDocument(doc)
	doc.Unlock()
	if err := Save(dh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Deck.Pages[0].ID != p.ID {
		t.Fatalf("page order not persisted")
	}
}
