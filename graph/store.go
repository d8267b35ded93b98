//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"fmt"
	"sync"
)

// Store is the in-memory registry of graphs. Ids are monotonically
// increasing and never reused; graphs live for the process lifetime.
//
// Creating and looking up graphs is safe for concurrent use. Mutating or
// running a single graph is not: callers must hold the graph's lock (via
// Acquire) across a mutation or a compile-and-run cycle.
type Store struct {
	mu     sync.Mutex
	nextID int
	graphs map[int]*Graph
	locks  map[int]*sync.Mutex
}

// NewStore creates a new empty store.
func NewStore() *Store {
	return &Store{
		graphs: make(map[int]*Graph),
		locks:  make(map[int]*sync.Mutex),
	}
}

// Create allocates a new empty graph and returns its id.
func (s *Store) Create() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.graphs[id] = newGraph(id)
	s.locks[id] = &sync.Mutex{}
	return id
}

// Get returns the graph with the given id, or ErrGraphNotFound.
func (s *Store) Get(id int) (*Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrGraphNotFound, id)
	}
	return g, nil
}

// Acquire returns the graph with its per-graph lock held. The caller must
// invoke the returned release function when the mutation or compile-and-run
// cycle is complete.
func (s *Store) Acquire(id int) (*Graph, func(), error) {
	s.mu.Lock()
	g, ok := s.graphs[id]
	lock := s.locks[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrGraphNotFound, id)
	}
	lock.Lock()
	return g, lock.Unlock, nil
}
