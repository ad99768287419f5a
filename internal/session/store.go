// Package session owns the application session token and its lifecycle.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/patcav/subtrack/internal/storage"
)

// ErrNotSignedIn indicates an authenticated operation was attempted without
// a valid session token.
var ErrNotSignedIn = errors.New("session: not signed in")

// Store holds the single live session token, mirrored to durable storage.
// It also carries the epoch counter used to discard responses that arrive
// for a session that no longer exists.
type Store struct {
	kv *storage.KV

	mu    sync.Mutex
	token string
	epoch int64
}

// New creates a store backed by the given key/value store.
func New(kv *storage.KV) *Store {
	return &Store{kv: kv}
}

// Valid reports whether a token passes the session validity check:
// non-empty after trimming whitespace.
func Valid(token string) bool {
	return strings.TrimSpace(token) != ""
}

// Restore reads the persisted token at startup. An absent or invalid stored
// token means logged-out; it is never an error.
func (s *Store) Restore() (string, bool) {
	stored, ok, err := s.kv.Get(storage.KeySessionToken)
	if err != nil || !ok || !Valid(stored) {
		return "", false
	}

	s.mu.Lock()
	s.token = stored
	s.epoch++
	s.mu.Unlock()
	return stored, true
}

// SignIn stores a freshly issued token in memory and durable storage,
// replacing any previous session.
func (s *Store) SignIn(token string) error {
	if !Valid(token) {
		return ErrNotSignedIn
	}
	if err := s.kv.Set(storage.KeySessionToken, token); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.epoch++
	s.mu.Unlock()
	return nil
}

// SignOut clears the in-memory token and durable storage. It is also the
// forced path taken when any authenticated call is rejected; the bank-link
// credential and rate baseline are deliberately left alone.
func (s *Store) SignOut() error {
	s.mu.Lock()
	s.token = ""
	s.epoch++
	s.mu.Unlock()

	return s.kv.Delete(storage.KeySessionToken)
}

// Token returns the live token, or false when logged out.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !Valid(s.token) {
		return "", false
	}
	return s.token, true
}

// Epoch returns the current session epoch. Capture it before a network call
// and check Current before applying the response.
func (s *Store) Epoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Current reports whether the given epoch still identifies the live session.
// A stale epoch means the originating session was superseded and the
// response must be ignored.
func (s *Store) Current(epoch int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}

// SetUsername persists the last-used username as a login convenience.
func (s *Store) SetUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return nil
	}
	return s.kv.Set(storage.KeyUsername, username)
}

// Username returns the persisted username, if any.
func (s *Store) Username() string {
	stored, ok, err := s.kv.Get(storage.KeyUsername)
	if err != nil || !ok {
		return ""
	}
	return stored
}
