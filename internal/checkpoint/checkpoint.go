package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// StateKey names the workspace state blob holding every chat checkpoint.
const StateKey = "whatsappImportState"

// Backend loads and saves named state blobs. LoadState returns nil, nil
// when nothing was saved yet. *workspace.Service satisfies it.
type Backend interface {
	LoadState(ctx context.Context, key string) ([]byte, error)
	SaveState(ctx context.Context, key string, value []byte) error
}

// NotifyFunc is told about every state blob a Backend saved.
type NotifyFunc func(ctx context.Context, key string, value []byte)

type notifyingBackend struct {
	Backend
	notify NotifyFunc
}

// WithNotify wraps b so each successful SaveState is reported to fn. It lets a
// backend outside the workspace still feed the state.saved event stream.
func WithNotify(b Backend, fn NotifyFunc) Backend {
	return &notifyingBackend{Backend: b, notify: fn}
}

func (n *notifyingBackend) SaveState(ctx context.Context, key string, value []byte) error {
	if err := n.Backend.SaveState(ctx, key, value); err != nil {
		return err
	}
	n.notify(ctx, key, value)
	return nil
}

// Store maps chat identity keys to the timestamp of the newest processed message.
type Store struct {
	backend Backend
	mu      sync.Mutex
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Key builds the chat identity key. Without a company it degrades to the
// bare chat name, which is also the legacy key format.
func Key(companyID, chatName string) string {
	if companyID == "" {
		return chatName
	}
	return companyID + "::" + chatName
}

func (s *Store) load(ctx context.Context) (map[string]string, error) {
	data, err := s.backend.LoadState(ctx, StateKey)
	if err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}
	state := make(map[string]string)
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse checkpoints: %w", err)
	}
	return state, nil
}

func lookup(state map[string]string, companyID, chatName string) *time.Time {
	raw, ok := state[Key(companyID, chatName)]
	if !ok && companyID != "" {
		raw, ok = state[chatName]
	}
	if !ok {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &ts
}

// Get returns the checkpoint for the chat, or nil when none exists.
func (s *Store) Get(ctx context.Context, companyID, chatName string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return lookup(state, companyID, chatName), nil
}

// Set records ts for the chat under the namespaced key and removes the legacy
// key. An older ts than the stored checkpoint leaves the checkpoint in place.
func (s *Store) Set(ctx context.Context, companyID, chatName string, ts time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return time.Time{}, err
	}

	next := ts.UTC()
	if cur := lookup(state, companyID, chatName); cur != nil && cur.After(next) {
		next = cur.UTC()
	}

	state[Key(companyID, chatName)] = next.Format(time.RFC3339Nano)
	if companyID != "" {
		delete(state, chatName)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal checkpoints: %w", err)
	}
	if err := s.backend.SaveState(ctx, StateKey, data); err != nil {
		return time.Time{}, fmt.Errorf("save checkpoints: %w", err)
	}
	return next, nil
}

// All returns every stored checkpoint keyed by chat identity.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}
