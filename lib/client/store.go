/*
 * wideq
 * Copyright (C) 2026  wideq contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package client

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq/lib/defaults"
)

// StateStore persists client state between runs.
type StateStore interface {
	// Load reads the saved state, returning a zero State when nothing
	// has been saved yet.
	Load() (*State, error)
	// Save writes the state.
	Save(*State) error
}

// FSStateStore keeps state in a JSON file. The state carries credentials,
// so the file is written private to the owner.
type FSStateStore struct {
	// Path locates the state file.
	Path string
}

// NewFSStateStore returns a store backed by path.
func NewFSStateStore(path string) *FSStateStore {
	return &FSStateStore{Path: path}
}

// Load reads the state file. A missing file is a fresh state, not an
// error.
func (s *FSStateStore) Load() (*State, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, trace.ConvertSystemError(err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, trace.BadParameter("state file %v is not valid JSON: %v", s.Path, err)
	}
	return &state, nil
}

// Save writes the state file.
func (s *FSStateStore) Save(state *State) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return trace.Wrap(err)
	}
	if err := os.WriteFile(s.Path, raw, defaults.StateFileMode); err != nil {
		return trace.ConvertSystemError(err)
	}
	return nil
}

// MemStateStore keeps state in memory, for tests and embedders that manage
// persistence themselves.
type MemStateStore struct {
	mu  sync.Mutex
	raw []byte
}

// NewMemStateStore returns an empty in-memory store.
func NewMemStateStore() *MemStateStore {
	return &MemStateStore{}
}

// Load returns the saved state, or a zero State when nothing has been
// saved yet.
func (s *MemStateStore) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return &State{}, nil
	}
	var state State
	if err := json.Unmarshal(s.raw, &state); err != nil {
		return nil, trace.Wrap(err)
	}
	return &state, nil
}

// Save stores a snapshot of the state.
func (s *MemStateStore) Save(state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return trace.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	return nil
}
