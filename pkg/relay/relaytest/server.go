// Copyright (C) 2025 vultisig
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package relaytest is an in-memory relay server implementing the exact
// HTTP surface of pkg/relay, for driving pkg/relay, pkg/partysession,
// pkg/mpcdriver, and pkg/ceremony tests without a network.
package relaytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// Server is a map+mutex backed fake of the relay HTTP surface, the same
// shape as a map+mutex in-memory registry store, repurposed here for
// sessions/parties/messages/setup-blobs/completion instead of DID rows.
type Server struct {
	mu sync.Mutex

	parties  map[string][]types.PartyId // sessionId -> registered parties
	started  map[string][]types.PartyId // sessionId -> pinned set
	messages map[string][]types.RelayMessage
	setup    map[string][]byte // sessionId+header -> blob
	complete map[string][]types.PartyId

	httpServer *httptest.Server
}

// New starts a relaytest.Server; its URL method returns the address to
// hand to relay.NewClient.
func New() *Server {
	s := &Server{
		parties:  make(map[string][]types.PartyId),
		started:  make(map[string][]types.PartyId),
		messages: make(map[string][]types.RelayMessage),
		setup:    make(map[string][]byte),
		complete: make(map[string][]types.PartyId),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.route))
	return s
}

// URL is the base URL to pass to relay.NewClient.
func (s *Server) URL() string { return s.httpServer.URL }

// Close shuts down the underlying httptest.Server.
func (s *Server) Close() { s.httpServer.Close() }

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ping":
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Voltix Router is running"))
	case strings.HasPrefix(r.URL.Path, "/start/"):
		s.handleStart(w, r, strings.TrimPrefix(r.URL.Path, "/start/"))
	case strings.HasPrefix(r.URL.Path, "/message/"):
		s.handleMessage(w, r, strings.TrimPrefix(r.URL.Path, "/message/"))
	case strings.HasPrefix(r.URL.Path, "/setup-message/"):
		s.handleSetup(w, r, strings.TrimPrefix(r.URL.Path, "/setup-message/"))
	case strings.HasPrefix(r.URL.Path, "/complete/"):
		s.handleComplete(w, r, strings.TrimPrefix(r.URL.Path, "/complete/"))
	case strings.HasPrefix(r.URL.Path, "/"):
		s.handleParties(w, r, strings.TrimPrefix(r.URL.Path, "/"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleParties(w http.ResponseWriter, r *http.Request, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var incoming []types.PartyId
		if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		existing := s.parties[sessionID]
		seen := make(map[types.PartyId]bool, len(existing))
		for _, p := range existing {
			seen[p] = true
		}
		for _, p := range incoming {
			if !seen[p] {
				existing = append(existing, p)
				seen[p] = true
			}
		}
		s.parties[sessionID] = existing
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		writeJSON(w, s.parties[sessionID])
	case http.MethodDelete:
		delete(s.parties, sessionID)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var parties []types.PartyId
		if err := json.NewDecoder(r.Body).Decode(&parties); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.started[sessionID] = parties
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		parties, ok := s.started[sessionID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, parties)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, rest string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		sessionID := rest
		var msg types.RelayMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.messages[sessionID] = append(s.messages[sessionID], msg)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			http.Error(w, "expected sessionId/partyId", http.StatusBadRequest)
			return
		}
		sessionID, partyID := parts[0], types.PartyId(parts[1])
		var out []types.RelayMessage
		for _, m := range s.messages[sessionID] {
			for _, to := range m.To {
				if to == partyID {
					out = append(out, m)
					break
				}
			}
		}
		writeJSON(w, out)
	case http.MethodDelete:
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) != 3 {
			http.Error(w, "expected sessionId/partyId/hash", http.StatusBadRequest)
			return
		}
		sessionID, partyID, hash := parts[0], types.PartyId(parts[1]), parts[2]
		kept := s.messages[sessionID][:0]
		for _, m := range s.messages[sessionID] {
			if m.Hash == hash {
				var remaining []types.PartyId
				for _, to := range m.To {
					if to != partyID {
						remaining = append(remaining, to)
					}
				}
				if len(remaining) == 0 {
					continue
				}
				m.To = remaining
			}
			kept = append(kept, m)
		}
		s.messages[sessionID] = kept
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request, sessionID string) {
	key := sessionID + "|" + r.Header.Get(relay.SetupHeaderName)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.setup[key] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := s.setup[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, rest string) {
	sessionID := strings.TrimSuffix(rest, "/keysign")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var parties []types.PartyId
		if err := json.NewDecoder(r.Body).Decode(&parties); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		existing := s.complete[sessionID]
		seen := make(map[types.PartyId]bool, len(existing))
		for _, p := range existing {
			seen[p] = true
		}
		for _, p := range parties {
			if !seen[p] {
				existing = append(existing, p)
				seen[p] = true
			}
		}
		s.complete[sessionID] = existing
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		writeJSON(w, s.complete[sessionID])
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
