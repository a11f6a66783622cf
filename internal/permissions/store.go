package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/pkg/eventbus"
	"pharmacie-admin/pkg/storage"

	"go.uber.org/zap"
)

// Listener receives a private copy of the permission set after every
// invalidation signal.
type Listener func(set authz.Set)

// Store holds the permission set of one session. It hydrates lazily from
// storage and re-hydrates when the auth flow announces new permissions or the
// persisted key changes.
type Store struct {
	sessionID string
	key       string
	storage   storage.Storage
	bus       *eventbus.Bus
	logger    *zap.Logger

	mu       sync.RWMutex
	set      authz.Set
	hydrated bool

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]Listener
	detach    []func()
}

// NewStore returns an isolated store for sessionID.
func NewStore(st storage.Storage, bus *eventbus.Bus, sessionID string, logger *zap.Logger) *Store {
	return &Store{
		sessionID: sessionID,
		key:       storage.SessionKey(sessionID, storage.KeyPermissions),
		storage:   st,
		bus:       bus,
		logger:    logger,
		subs:      make(map[int]Listener),
	}
}

// SessionID of the owning session.
func (s *Store) SessionID() string { return s.sessionID }

// Read returns the current permission set, hydrating it on first use. It
// never fails: missing or unreadable state reads as the empty set.
func (s *Store) Read(ctx context.Context) authz.Set {
	s.mu.RLock()
	if s.hydrated {
		defer s.mu.RUnlock()
		return s.set.Clone()
	}
	s.mu.RUnlock()

	return s.hydrate(ctx).Clone()
}

func (s *Store) hydrate(ctx context.Context) authz.Set {
	set := s.load(ctx)

	s.mu.Lock()
	s.set = set
	s.hydrated = true
	s.mu.Unlock()
	return set
}

func (s *Store) load(ctx context.Context) authz.Set {
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("permission store: storage read failed, using empty set",
				zap.String("session", s.sessionID), zap.Error(err))
		}
		return authz.Set{}
	}
	set, err := authz.ParseSet([]byte(raw))
	if err != nil {
		s.logger.Warn("permission store: corrupt persisted permissions, using empty set",
			zap.String("session", s.sessionID), zap.Error(err))
		return authz.Set{}
	}
	return set
}

// Replace persists set wholesale and announces it. Only the auth flow calls it.
func (s *Store) Replace(ctx context.Context, set authz.Set) error {
	raw, err := json.Marshal(set.Clone())
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, s.key, string(raw)); err != nil {
		return err
	}
	s.bus.Publish(ctx, eventbus.PermissionsUpdated{SessionID: s.sessionID})
	return nil
}

// Clear drops the persisted set.
func (s *Store) Clear(ctx context.Context) error {
	return s.storage.Del(ctx, s.key)
}

// Subscribe registers listener and returns the function that removes it. The
// store attaches to the bus with its first subscriber and detaches with its
// last.
func (s *Store) Subscribe(listener Listener) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if len(s.subs) == 0 {
		s.attach()
	}
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subs, id)
	if len(s.subs) == 0 {
		for _, d := range s.detach {
			d()
		}
		s.detach = nil
	}
}

func (s *Store) attach() {
	s.detach = []func(){
		s.bus.Subscribe(eventbus.PermissionsUpdatedEvent, func(ctx context.Context, e eventbus.Event) error {
			if ev, ok := e.(eventbus.PermissionsUpdated); ok && ev.SessionID == s.sessionID {
				s.refresh(ctx)
			}
			return nil
		}),
		s.bus.Subscribe(eventbus.StorageChangedEvent, func(ctx context.Context, e eventbus.Event) error {
			if ev, ok := e.(eventbus.StorageChanged); ok && ev.Key == s.key {
				s.refresh(ctx)
			}
			return nil
		}),
	}
}

// refresh re-hydrates and notifies subscribers when the set actually changed;
// Replace raises both signals for one write.
func (s *Store) refresh(ctx context.Context) {
	s.mu.RLock()
	prev, had := s.set, s.hydrated
	s.mu.RUnlock()

	set := s.hydrate(ctx)
	if had && maps.Equal(prev, set) {
		return
	}

	s.subsMu.Lock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, l := range s.subs {
		listeners = append(listeners, l)
	}
	s.subsMu.Unlock()

	for _, l := range listeners {
		l(set.Clone())
	}
}

// Stores hands out per-session stores sharing one storage and bus.
type Stores struct {
	storage storage.Storage
	bus     *eventbus.Bus
	logger  *zap.Logger
}

func NewStores(st storage.Storage, bus *eventbus.Bus, logger *zap.Logger) *Stores {
	return &Stores{storage: st, bus: bus, logger: logger.Named("permissions")}
}

// For returns a fresh store for sessionID.
func (f *Stores) For(sessionID string) *Store {
	return NewStore(f.storage, f.bus, sessionID, f.logger)
}
