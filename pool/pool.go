// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pool provides a bounded worker pool for blocking operations.
// Market-data fetches and portfolio aggregation run through the pool so a
// request handler never executes blocking work inline; pool size bounds
// how many fetch+compute pipelines may run concurrently.
package pool

import (
	"context"
	"errors"
	"runtime"
)

var ErrClosed = errors.New("pool is closed")

// Pool is a fixed-size worker pool. Tasks queue on the pool's work channel
// when all workers are busy.
type Pool struct {
	work chan func()
	done chan struct{}
}

// New creates a pool with the requested number of workers. Sizes less than
// 1 default to runtime.NumCPU.
func New(size int) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}

	p := &Pool{
		work: make(chan func()),
		done: make(chan struct{}),
	}

	for ii := 0; ii < size; ii++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	for {
		select {
		case fn := <-p.work:
			fn()
		case <-p.done:
			return
		}
	}
}

// Do runs fn on a pool worker and blocks until it completes, returning
// fn's error. Waiting for a free worker respects ctx cancellation.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	task := func() {
		errc <- fn()
	}

	select {
	case p.work <- task:
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops all workers. Tasks already running finish; queued tasks that
// have not been picked up are abandoned.
func (p *Pool) Close() {
	close(p.done)
}
