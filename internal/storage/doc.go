/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage provides persistence for pagedeck decks.
// It handles create/open/save for the canonical JSON manifest (deck.json) with transactional writes,
// schema validation and timestamped backups.
// It also manages the per-deck SQLite index at <deck>/.pdk/index.sqlite, which journals undo history
// so that undo and redo survive across sessions. The index is disposable; deleting it only loses history.
package storage
