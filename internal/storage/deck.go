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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"pagedeck/internal/domain"
	applog "pagedeck/internal/log"
)

const (
	ManifestFileName = "deck.json"
	BackupsDirName   = "backups"
)

// ErrInvalidManifest is returned when a manifest does not conform to the deck schema.
var ErrInvalidManifest = errors.New("manifest does not conform to deck schema")

//go:embed deck.schema.json
var deckSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(deckSchema)

// Standard subfolders of a deck directory.
var standardSubDirs = []string{
	"assets",
	BackupsDirName,
}

// DeckHandle keeps track of a deck loaded from or saved to disk.
// Root is the deck directory containing deck.json and subfolders.
type DeckHandle struct {
	Root         string
	ManifestPath string
	Deck         domain.Deck
}

// Validate checks manifest bytes against the embedded deck schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}
	return nil
}

// InitDeck creates a new deck directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the given manifest transactionally.
func InitDeck(root string, deck domain.Deck) (*DeckHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	dh := &DeckHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Deck:         deck,
	}
	if err := Save(dh); err != nil {
		return nil, err
	}
	return dh, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create deck root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads an existing deck from root. If the manifest cannot be read,
// parsed or validated, the latest backup is tried instead.
func Open(root string) (*DeckHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	deck, err := readManifest(mpath)
	if err != nil {
		l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
		l.Warn("manifest unusable, trying backup", slog.Any("err", err))
		bdeck, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &DeckHandle{Root: root, ManifestPath: mpath, Deck: *bdeck}, nil
	}
	return &DeckHandle{Root: root, ManifestPath: mpath, Deck: *deck}, nil
}

func readManifest(path string) (*domain.Deck, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d domain.Deck
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := Validate(b); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save writes dh.Deck to disk with transactional semantics and a
// timestamped backup of the previous manifest (if present).
func Save(dh *DeckHandle) error {
	if dh == nil {
		return errors.New("nil DeckHandle")
	}
	if dh.Root == "" || dh.ManifestPath == "" {
		return errors.New("invalid DeckHandle: missing paths")
	}
	if dh.Deck.Pages == nil {
		dh.Deck.Pages = []domain.Page{}
	}
	data, err := json.MarshalIndent(dh.Deck, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := Validate(data); err != nil {
		return err
	}

	bdir := filepath.Join(dh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// Keep the current manifest as a timestamped backup before replacing it.
	if _, statErr := os.Stat(dh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		if cerr := copyFile(dh.ManifestPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Write to a temp file in the same directory, then rename over the target.
	dir := filepath.Dir(dh.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(dh.ManifestPath); err == nil {
		_ = os.Remove(dh.ManifestPath)
	}
	if rerr := os.Rename(temp, dh.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// AutosaveCrashSnapshot writes the in-memory manifest next to the backups
// without touching deck.json. It is used when recovering from a panic.
func AutosaveCrashSnapshot(dh *DeckHandle) (string, error) {
	if dh == nil || dh.Root == "" {
		return "", errors.New("invalid DeckHandle")
	}
	data, err := json.MarshalIndent(dh.Deck, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	bdir := filepath.Join(dh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("%s.%s.crash", ManifestFileName, stamp))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup opens the newest backup that parses and validates.
func openFromLatestBackup(root string) (*domain.Deck, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		d, err := readManifest(candidates[i])
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("read latest backup: %w", lastErr)
}
