// Package store holds client-side state containers for the TaskFlow CLI.
// Each store owns a value-typed state, changes it only through reducer
// functions, and notifies subscribers with a snapshot after every change.
package store

import (
	"errors"
	"sync"

	"github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

// ErrNotAuthenticated is returned by actions that need a session when none exists.
var ErrNotAuthenticated = errors.New("store: not signed in")

// TokenSource supplies the bearer token for API calls.
type TokenSource interface {
	AccessToken() string
}

type container[S any] struct {
	mu     sync.Mutex
	state  S
	subs   map[int]func(S)
	nextID int
}

func newContainer[S any](initial S) *container[S] {
	return &container[S]{state: initial, subs: make(map[int]func(S))}
}

func (c *container[S]) snapshot() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// apply runs reduce under the lock and notifies subscribers outside it.
func (c *container[S]) apply(reduce func(S) S) S {
	c.mu.Lock()
	next := reduce(c.state)
	c.state = next
	subs := make([]func(S), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(next)
	}
	return next
}

func (c *container[S]) subscribe(fn func(S)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// displayError renders err for a view, preferring the server's message.
func displayError(err error, fallback string) string {
	var apiErr client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if err == nil {
		return fallback
	}
	return err.Error()
}

func upsertByID[T any](items []T, item T, id func(T) string) []T {
	out := make([]T, 0, len(items)+1)
	replaced := false
	for _, existing := range items {
		if id(existing) == id(item) {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, item)
	}
	return out
}

func removeByID[T any](items []T, target string, id func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, existing := range items {
		if id(existing) != target {
			out = append(out, existing)
		}
	}
	return out
}
