/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points the loader at a private config file and clears the overrides used below.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	for _, k := range []string{EnvTelemetryOptIn, EnvConfirmDelete, EnvEditorDebug, EnvUndoMaxDepth, EnvPreviewZoom, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.General.ConfirmDelete = false
	cfg.Editor.PageWidth, cfg.Editor.PageHeight = 612, 792
	cfg.Preview.Zoom = 0.25
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.General.ConfirmDelete || got.Editor.PageWidth != 612 || got.Editor.PageHeight != 792 || got.Preview.Zoom != 0.25 {
		t.Fatalf("saved values not loaded: %#v", got)
	}
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("editor: [not, a, map"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor != Defaults().Editor {
		t.Fatalf("expected default editor config, got %#v", cfg.Editor)
	}
}

func TestEnvOverridesEditor(t *testing.T) {
	isolate(t)
	t.Setenv(EnvEditorDebug, "yes")
	t.Setenv(EnvUndoMaxDepth, "7")
	t.Setenv(EnvPreviewZoom, "0.5")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Editor.Debug || cfg.Editor.UndoMaxDepth != 7 || cfg.Preview.Zoom != 0.5 {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if env, ok := EnvOverrideFor("editor.debug"); !ok || env != EnvEditorDebug {
		t.Fatalf("EnvOverrideFor(editor.debug) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("logging.file should not be reported as overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = " /tmp/pdk.log "
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/pdk.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeIgnoresPartialPageSize(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{PageWidth: 100}}
	mergeInto(&dst, &src)
	if dst.Editor.PageWidth != 595 || dst.Editor.PageHeight != 842 {
		t.Fatalf("partial page size should be ignored, got %vx%v", dst.Editor.PageWidth, dst.Editor.PageHeight)
	}
}
