/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package eventloop runs tasks one at a time on a single goroutine and lets a
// running task wait for a result without blocking other queued tasks.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	applog "pagedeck/internal/log"
)

// ErrStopped is returned when posting to or waiting on a stopped loop.
var ErrStopped = errors.New("eventloop: stopped")

// Task is a unit of work. ctx identifies the loop, so a task may call Wait.
type Task func(ctx context.Context)

type loopKey struct{}

// Loop is a single-threaded task queue.
type Loop struct {
	q       chan Task
	quit    chan struct{}
	once    sync.Once
	depth   int // nested Wait depth, only touched on the loop goroutine
	maxSeen int
	log     *slog.Logger
}

// New creates a loop with a queue of the given capacity.
func New(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 64
	}
	return &Loop{
		q:    make(chan Task, capacity),
		quit: make(chan struct{}),
		log:  applog.WithComponent("eventloop"),
	}
}

// Post queues t. It returns ErrStopped after Quit. It may be called from any goroutine.
func (l *Loop) Post(t Task) error {
	select {
	case <-l.quit:
		return ErrStopped
	default:
	}
	select {
	case l.q <- t:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

// Quit stops the loop. Queued tasks that have not started are dropped.
func (l *Loop) Quit() { l.once.Do(func() { close(l.quit) }) }

// Run processes tasks on the calling goroutine until ctx is done or Quit is called.
func (l *Loop) Run(ctx context.Context) error {
	lctx := context.WithValue(ctx, loopKey{}, l)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return nil
		case t := <-l.q:
			t(lctx)
		}
	}
}

// OnLoop reports whether ctx belongs to a task running on l.
func (l *Loop) OnLoop(ctx context.Context) bool {
	v, _ := ctx.Value(loopKey{}).(*Loop)
	return v == l
}

// Wait blocks until done is closed. Called from a task on the loop, it keeps
// running other queued tasks meanwhile, so a reply posted back to the loop
// can complete the wait. Waits may nest. Called elsewhere it simply blocks.
func (l *Loop) Wait(ctx context.Context, done <-chan struct{}) error {
	if !l.OnLoop(ctx) {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return ErrStopped
		}
	}
	l.depth++
	if l.depth > l.maxSeen {
		l.maxSeen = l.depth
	}
	defer func() { l.depth-- }()
	l.log.Debug("nested wait", slog.Int("depth", l.depth))
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return ErrStopped
		case t := <-l.q:
			t(ctx)
		}
	}
}

// Call runs fn on the loop and blocks until it has returned. It must not be
// called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn Task) error {
	done := make(chan struct{})
	if err := l.Post(func(c context.Context) {
		defer close(done)
		fn(c)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return ErrStopped
	}
}
