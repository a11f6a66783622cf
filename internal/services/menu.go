package services

import (
	"context"
	"net/http"
	"sync"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/navigation"
	"pharmacie-admin/internal/permissions"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"
	"pharmacie-admin/pkg/websocket"

	"go.uber.org/zap"
)

// Notifier pushes a message to every connection of a session.
type Notifier interface {
	SendToSession(sessionID string, messageType string, payload interface{}) error
}

// CheckerFactory builds the backend access checker of a session.
type CheckerFactory func(sessionID string) authz.AccessChecker

type MenuServiceInterface interface {
	Menu(ctx context.Context, sessionID, path string) dto.MenuDTO
	Select(ctx context.Context, sessionID string, payload dto.SelectMenuDTO) (*dto.SelectMenuResultDTO, error)
	Forget(sessionID string)
}

// menuSession is the live navigation state of one shell session.
type menuSession struct {
	store       *permissions.Store
	gate        *authz.AsyncGate
	unsubscribe func()

	mu      sync.Mutex
	pending int
}

func (m *menuSession) pendingOrders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// MenuService composes the side menu of each session and pushes a refresh to
// the shell whenever an input of the composition changes: the permission
// set, a settled access check or the pending-orders count.
type MenuService struct {
	composer *navigation.Composer
	stores   *permissions.Stores
	checkers CheckerFactory
	notifier Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*menuSession
	detach   []func()
}

func NewMenuService(
	composer *navigation.Composer,
	stores *permissions.Stores,
	checkers CheckerFactory,
	notifier Notifier,
	bus *eventbus.Bus,
	logger *zap.Logger,
) *MenuService {
	s := &MenuService{
		composer: composer,
		stores:   stores,
		checkers: checkers,
		notifier: notifier,
		logger:   logger.Named("menu"),
		sessions: make(map[string]*menuSession),
	}
	s.detach = []func(){
		bus.Subscribe(eventbus.PendingOrdersChangedEvent, s.onPendingOrders),
		bus.Subscribe(eventbus.AuthErrorEvent, s.onAuthError),
	}
	return s
}

// Close detaches the service from the bus and drops every session.
func (s *MenuService) Close() {
	for _, d := range s.detach {
		d()
	}
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Forget(id)
	}
}

func (s *MenuService) session(sessionID string) *menuSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.sessions[sessionID]; ok {
		return m
	}

	m := &menuSession{store: s.stores.For(sessionID)}
	m.gate = authz.NewAsyncGate(s.checkers(sessionID), 0, s.logger, func(resource string, _ authz.Action, d authz.Decision) {
		s.logger.Debug("access check settled",
			zap.String("session", sessionID), zap.String("resource", resource), zap.Stringer("decision", d))
		s.push(sessionID, websocket.TypeMenuChanged, nil)
	})
	m.unsubscribe = m.store.Subscribe(func(authz.Set) {
		m.gate.Reset()
		s.push(sessionID, websocket.TypeMenuChanged, nil)
	})
	s.sessions[sessionID] = m
	return m
}

func (s *MenuService) lookup(sessionID string) (*menuSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[sessionID]
	return m, ok
}

// Forget releases the navigation state of a session.
func (s *MenuService) Forget(sessionID string) {
	s.mu.Lock()
	m, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		m.unsubscribe()
	}
}

func (s *MenuService) push(sessionID, messageType string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendToSession(sessionID, messageType, payload); err != nil {
		s.logger.Warn("failed to push to shell", zap.String("session", sessionID), zap.String("type", messageType), zap.Error(err))
	}
}

func (s *MenuService) compose(ctx context.Context, m *menuSession, path string) navigation.Menu {
	return s.composer.Compose(navigation.Input{
		Permissions: m.store.Read(ctx),
		Path:        path,
		Decide: func(resource string) authz.Decision {
			return m.gate.Decide(resource, authz.ActionView)
		},
		PendingOrders: m.pendingOrders(),
	})
}

// Menu composes the side menu of a session for the route path.
func (s *MenuService) Menu(ctx context.Context, sessionID, path string) dto.MenuDTO {
	m := s.session(sessionID)
	menu := s.compose(ctx, m, path)
	return dto.MenuDTO{Entries: menu.Entries, PendingOrders: m.pendingOrders()}
}

// Select resolves the entry the user picked and reports the drawer state the
// shell must apply.
func (s *MenuService) Select(ctx context.Context, sessionID string, payload dto.SelectMenuDTO) (*dto.SelectMenuResultDTO, error) {
	m := s.session(sessionID)
	drawer := &navigation.MobileDrawer{Open: payload.DrawerOpen}

	entry, ok := s.compose(ctx, m, "").Select(payload.Key, drawer)
	if !ok {
		return nil, apperrors.NewHttpError(http.StatusNotFound, "menu entry not available", apperrors.ErrNotFound, map[string]interface{}{"key": payload.Key})
	}
	entry.Active = true
	return &dto.SelectMenuResultDTO{Entry: entry, DrawerOpen: drawer.IsOpen()}, nil
}

func (s *MenuService) onPendingOrders(_ context.Context, e eventbus.Event) error {
	ev, ok := e.(eventbus.PendingOrdersChanged)
	if !ok {
		return nil
	}
	if m, ok := s.lookup(ev.SessionID); ok {
		m.mu.Lock()
		m.pending = ev.Count
		m.mu.Unlock()
	}

	payload := websocket.PendingOrdersPayload{Count: ev.Count, Badge: navigation.Badge(ev.Count)}
	for _, o := range ev.Arrived {
		payload.Arrived = append(payload.Arrived, websocket.ArrivedOrder{
			ID:             o.ID,
			NumeroCommande: o.NumeroCommande,
			Service:        o.Service,
		})
	}
	s.push(ev.SessionID, websocket.TypePendingOrders, payload)
	return nil
}

func (s *MenuService) onAuthError(_ context.Context, e eventbus.Event) error {
	ev, ok := e.(eventbus.AuthError)
	if !ok {
		return nil
	}
	s.logger.Info("session expired, sending shell to login", zap.String("session", ev.SessionID))
	s.push(ev.SessionID, websocket.TypeAuthError, websocket.AuthErrorPayload{Reason: ev.Reason})
	s.Forget(ev.SessionID)
	return nil
}
