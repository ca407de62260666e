// Package task runs a group of long-lived goroutines which are started and
// awaited together.
package task

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Group of tasks executed concurrently. The Group's Context is cancelled
// when any task returns a non-nil error, when Cancel is called, or when the
// parent Context is done, and tasks are expected to return upon its
// cancellation. A Group isn't itself safe for concurrent use.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
	queued []queued
	begun  bool
}

type queued struct {
	name string
	fn   func() error
}

// NewGroup returns an empty Group derived from |ctx|.
func NewGroup(ctx context.Context) *Group {
	var g = new(Group)
	ctx, g.cancel = context.WithCancel(ctx)
	g.eg, g.ctx = errgroup.WithContext(ctx)
	return g
}

// Context of the Group.
func (g *Group) Context() context.Context { return g.ctx }

// Cancel the Group's Context.
func (g *Group) Cancel() { g.cancel() }

// Queue |fn| to run under |name|, which annotates its returned error.
// Queue panics if called after GoRun.
func (g *Group) Queue(name string, fn func() error) {
	if g.begun {
		panic("Queue called after GoRun")
	}
	g.queued = append(g.queued, queued{name: name, fn: fn})
}

// GoRun starts all queued tasks. It panics if called more than once.
func (g *Group) GoRun() {
	if g.begun {
		panic("GoRun already called")
	}
	g.begun = true

	for _, q := range g.queued {
		var q = q
		g.eg.Go(func() error { return errors.WithMessage(q.fn(), q.name) })
	}
}

// Wait for all started tasks, returning the first non-nil error.
// It panics if GoRun wasn't called.
func (g *Group) Wait() error {
	if !g.begun {
		panic("Wait called before GoRun")
	}
	return g.eg.Wait()
}
