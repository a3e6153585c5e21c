/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration of pagedeck.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	// ConfirmDelete asks before a page is removed from the deck.
	ConfirmDelete bool `yaml:"confirm_delete"`
}

type EditorConfig struct {
	// Debug turns replica desync into a panic instead of a forced rebuild.
	Debug bool `yaml:"debug"`
	// PageWidth/PageHeight size new blank pages in points when there is no neighbour to copy from.
	PageWidth    float64 `yaml:"page_width"`
	PageHeight   float64 `yaml:"page_height"`
	UndoMaxDepth int     `yaml:"undo_max_depth"`
	UndoMaxBytes int     `yaml:"undo_max_bytes"`
}

type PreviewConfig struct {
	Zoom float64 `yaml:"zoom"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Preview       PreviewConfig `yaml:"preview"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults. Page size is A4 in points.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, ConfirmDelete: true},
		Editor:        EditorConfig{Debug: false, PageWidth: 595, PageHeight: 842, UndoMaxDepth: 200, UndoMaxBytes: 8 * 1024 * 1024},
		Preview:       PreviewConfig{Zoom: 0.15},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PDK_CONFIG"
	EnvTelemetryOptIn = "PDK_TELEMETRY_OPT_IN"
	EnvConfirmDelete  = "PDK_CONFIRM_DELETE"
	EnvEditorDebug    = "PDK_EDITOR_DEBUG"
	EnvUndoMaxDepth   = "PDK_UNDO_MAX_DEPTH"
	EnvPreviewZoom    = "PDK_PREVIEW_ZOOM"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PDK_LOG_LEVEL"
	EnvLogFormat = "PDK_LOG_FORMAT"
	EnvLogSource = "PDK_LOG_SOURCE"
	EnvLogFile   = "PDK_LOG_FILE"
)

// ConfigPath returns the per-user config file path. PDK_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PageDeck")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PageDeck")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "pagedeck")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "pagedeck")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A malformed file is ignored in favour of defaults.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.ConfirmDelete = src.General.ConfirmDelete
	dst.Editor.Debug = src.Editor.Debug
	if src.Editor.PageWidth > 0 && src.Editor.PageHeight > 0 {
		dst.Editor.PageWidth = src.Editor.PageWidth
		dst.Editor.PageHeight = src.Editor.PageHeight
	}
	if src.Editor.UndoMaxDepth > 0 {
		dst.Editor.UndoMaxDepth = src.Editor.UndoMaxDepth
	}
	if src.Editor.UndoMaxBytes > 0 {
		dst.Editor.UndoMaxBytes = src.Editor.UndoMaxBytes
	}
	if src.Preview.Zoom > 0 {
		dst.Preview.Zoom = src.Preview.Zoom
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvConfirmDelete)); v != "" {
		cfg.General.ConfirmDelete = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEditorDebug)); v != "" {
		cfg.Editor.Debug = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvUndoMaxDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.UndoMaxDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreviewZoom)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Preview.Zoom = f
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"general.confirm_delete":   EnvConfirmDelete,
		"editor.debug":             EnvEditorDebug,
		"editor.undo_max_depth":    EnvUndoMaxDepth,
		"preview.zoom":             EnvPreviewZoom,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
