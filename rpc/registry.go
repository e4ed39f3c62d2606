// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package rpc

import (
	"encoding/json"
)

// continuation is invoked exactly once to resolve a pending call,
// with either the raw result payload or an error.
type continuation func(result json.RawMessage, err error)

// pendingCalls maps outstanding correlation ids to their
// continuations. It is confined to the dispatch loop, which is the
// concurrency control; there is no locking here on purpose.
type pendingCalls struct {
	entries map[int64]continuation

	// order remembers registration order so that a teardown sweep
	// resolves calls in the order they were issued.
	order []int64
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{
		entries: make(map[int64]continuation),
	}
}

// register stores the continuation under id. Reusing an id that is
// still pending is a hard error; the registry is left untouched.
func (p *pendingCalls) register(id int64, done continuation) error {
	if _, found := p.entries[id]; found {
		return &DuplicateIDError{ID: id}
	}
	p.entries[id] = done
	p.order = append(p.order, id)
	return nil
}

// resolve removes the entry for id and invokes its continuation.
// It reports whether there was a matching entry; a stray response
// is the caller's to deal with.
func (p *pendingCalls) resolve(id int64, result json.RawMessage, err error) bool {
	done, found := p.entries[id]
	if !found {
		return false
	}
	delete(p.entries, id)
	for i, pending := range p.order {
		if pending == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	done(result, err)
	return true
}

// resolveAll resolves every pending entry with err, in registration
// order, and empties the registry. No call is left unresolved past a
// disconnect.
func (p *pendingCalls) resolveAll(err error) {
	order := p.order
	entries := p.entries
	p.order = nil
	p.entries = make(map[int64]continuation)
	for _, id := range order {
		entries[id](nil, err)
	}
}

func (p *pendingCalls) len() int {
	return len(p.entries)
}
