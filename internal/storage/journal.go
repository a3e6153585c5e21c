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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pagedeck/internal/domain"
	applog "pagedeck/internal/log"
	"pagedeck/internal/undo"
)

// language=SQL
// dialect=SQLite
const insertHistorySQL = `INSERT INTO history(kind, from_idx, to_idx, reversed, page_id, snapshot, ts, undone)
	VALUES (?, ?, ?, ?, ?, ?, ?, 0)`

// language=SQL
// dialect=SQLite
const dropUndoneSQL = `DELETE FROM history WHERE undone = 1`

// language=SQL
// dialect=SQLite
const markUndoneSQL = `UPDATE history SET undone = ? WHERE seq = ?`

// language=SQL
// dialect=SQLite
const dropHistorySQL = `DELETE FROM history WHERE seq = ?`

// language=SQL
// dialect=SQLite
const listUndoSQL = `SELECT seq, kind, from_idx, to_idx, reversed, snapshot, ts FROM history
	WHERE undone = 0 ORDER BY seq DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const listRedoSQL = `SELECT seq, kind, from_idx, to_idx, reversed, snapshot, ts FROM history
	WHERE undone = 1 ORDER BY seq ASC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneHistorySQL = `DELETE FROM history WHERE undone = 0 AND seq NOT IN (
	SELECT seq FROM history WHERE undone = 0 ORDER BY seq DESC LIMIT ?
)`

const metaDeckKey = "deck"

// Journal persists undo history in the deck index so undo and redo work
// across sessions. It implements undo.Journal.
type Journal struct {
	db  *sql.DB
	log *slog.Logger
}

var _ undo.Journal = (*Journal)(nil)

// OpenJournal opens the history journal of the deck at root. When the index
// was written for a different deck name, its history is discarded.
func OpenJournal(ctx context.Context, root, deckName string) (*Journal, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db, log: applog.WithComponent("journal").With(slog.String("root", root))}
	stored, err := getMeta(ctx, db, metaDeckKey)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read journal meta: %w", err)
	}
	if stored != deckName {
		if stored != "" {
			j.log.Warn("journal belongs to another deck, clearing", slog.String("stored", stored), slog.String("deck", deckName))
			if err := j.Clear(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		if err := setMeta(ctx, db, metaDeckKey, deckName); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("write journal meta: %w", err)
		}
	}
	return j, nil
}

// Close releases the index database.
func (j *Journal) Close() error { return j.db.Close() }

// Append stores a as the newest undoable entry and drops undone entries,
// which can no longer be redone.
func (j *Journal) Append(ctx context.Context, a undo.Action) (int64, error) {
	pageID := ""
	if a.Page != nil {
		pageID = a.Page.ID
	}
	ts := a.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	if _, err := tx.ExecContext(ctx, dropUndoneSQL); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("drop undone: %w", err)
	}
	res, err := tx.ExecContext(ctx, insertHistorySQL, a.Kind.String(), a.From, a.To, boolToInt(a.Reversed), pageID, a.Snapshot, ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert history: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return seq, nil
}

// MarkUndone flags the entry seq as undone (true) or redone (false).
func (j *Journal) MarkUndone(ctx context.Context, seq int64, undone bool) error {
	_, err := j.db.ExecContext(ctx, markUndoneSQL, boolToInt(undone), seq)
	return err
}

// Drop deletes the entry seq.
func (j *Journal) Drop(ctx context.Context, seq int64) error {
	if _, err := j.db.ExecContext(ctx, dropHistorySQL, seq); err != nil {
		return fmt.Errorf("drop history entry %d: %w", seq, err)
	}
	return nil
}

// Load returns up to limit entries per stack, shaped for undo.Manager.Load:
// undo oldest first, redo with the next entry to redo last.
func (j *Journal) Load(ctx context.Context, limit int) (undoStack, redoStack []undo.Action, err error) {
	if limit <= 0 {
		limit = 200
	}
	// newest undo entries, reversed so the newest ends up last
	undoStack, err = j.list(ctx, listUndoSQL, limit)
	if err != nil {
		return nil, nil, err
	}
	reverse(undoStack)
	// lowest undone entries, reversed so the next redo ends up last
	redoStack, err = j.list(ctx, listRedoSQL, limit)
	if err != nil {
		return nil, nil, err
	}
	reverse(redoStack)
	return undoStack, redoStack, nil
}

func reverse(as []undo.Action) {
	for i, k := 0, len(as)-1; i < k; i, k = i+1, k-1 {
		as[i], as[k] = as[k], as[i]
	}
}

func (j *Journal) list(ctx context.Context, query string, limit int) ([]undo.Action, error) {
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []undo.Action
	for rows.Next() {
		var (
			a        undo.Action
			kind, ts string
			reversed int
		)
		if err := rows.Scan(&a.Seq, &kind, &a.From, &a.To, &reversed, &a.Snapshot, &ts); err != nil {
			return nil, err
		}
		k, ok := undo.ParseKind(kind)
		if !ok {
			j.log.Warn("skipping history entry of unknown kind", slog.Int64("seq", a.Seq), slog.String("kind", kind))
			continue
		}
		a.Kind = k
		a.Reversed = reversed != 0
		a.TS, _ = time.Parse(time.RFC3339Nano, ts)
		if len(a.Snapshot) > 0 {
			p, err := domain.PageFromSnapshot(a.Snapshot)
			if err != nil {
				j.log.Warn("skipping history entry with bad snapshot", slog.Int64("seq", a.Seq), slog.Any("err", err))
				continue
			}
			a.Page = p
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune keeps at most keepLast undoable entries and deletes older ones.
func (j *Journal) Prune(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx, pruneHistorySQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear removes all history.
func (j *Journal) Clear(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Len returns the number of undoable and redoable entries.
func (j *Journal) Len(ctx context.Context) (undoable, redoable int, err error) {
	err = j.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN undone = 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN undone = 1 THEN 1 ELSE 0 END), 0) FROM history`).Scan(&undoable, &redoable)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	return undoable, redoable, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
