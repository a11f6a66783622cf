package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/navigation"
	"pharmacie-admin/internal/registry"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"
	"pharmacie-admin/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pushed struct {
	sessionID string
	kind      string
	payload   interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []pushed
}

func (n *recordingNotifier) SendToSession(sessionID, messageType string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, pushed{sessionID, messageType, payload})
	return nil
}

func (n *recordingNotifier) of(kind string) []pushed {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []pushed
	for _, m := range n.msgs {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type staticChecker struct {
	deny map[string]bool
	err  error
}

func (c staticChecker) CheckAccess(_ context.Context, resource string, _ authz.Action) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return !c.deny[resource], nil
}

func newMenuService(t *testing.T, f *fixture, checker authz.AccessChecker) (*MenuService, *recordingNotifier) {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	svc := NewMenuService(
		navigation.NewComposer(reg),
		f.stores,
		func(string) authz.AccessChecker { return checker },
		notifier,
		f.bus,
		zap.NewNop(),
	)
	t.Cleanup(svc.Close)
	return svc, notifier
}

func (s *MenuService) settle(sessionID string) {
	if m, ok := s.lookup(sessionID); ok {
		m.gate.Wait()
	}
}

func keys(entries []navigation.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		key := e.Key
		if e.Placeholder {
			key += "?"
		}
		out = append(out, key)
	}
	return out
}

func TestMenu_PlaceholdersUntilChecksSettle(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.ViewDashboard, authz.ViewProduits, authz.ViewCommandes)
	svc, notifier := newMenuService(t, f, staticChecker{deny: map[string]bool{"commandes": true}})
	ctx := context.Background()

	first := svc.Menu(ctx, "s1", "/dashboard")
	assert.Equal(t, []string{"dashboard", "stock", "produits?", "commandes?"}, keys(first.Entries))
	assert.True(t, first.Entries[0].Active)

	svc.settle("s1")
	assert.NotEmpty(t, notifier.of(websocket.TypeMenuChanged))

	settled := svc.Menu(ctx, "s1", "/produits/4/show")
	require.Equal(t, []string{"dashboard", "stock", "produits"}, keys(settled.Entries))
	assert.Equal(t, "Produits", settled.Entries[2].Label)
	assert.True(t, settled.Entries[2].Active)
	assert.False(t, settled.Entries[1].Active)
}

func TestMenu_FailedCheckHidesEntry(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.ViewProduits)
	svc, _ := newMenuService(t, f, staticChecker{err: errors.New("backend down")})
	ctx := context.Background()

	svc.Menu(ctx, "s1", "")
	svc.settle("s1")

	assert.Equal(t, []string{"stock"}, keys(svc.Menu(ctx, "s1", "").Entries))
}

func TestMenu_PermissionChangeRecomposes(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.ViewProduits)
	svc, notifier := newMenuService(t, f, staticChecker{})
	ctx := context.Background()

	svc.Menu(ctx, "s1", "")
	svc.settle("s1")
	before := len(notifier.of(websocket.TypeMenuChanged))

	require.NoError(t, f.stores.For("s1").Replace(ctx, authz.Set{authz.ViewJournals: true}))

	assert.Greater(t, len(notifier.of(websocket.TypeMenuChanged)), before)
	assert.Equal(t, []string{"journals"}, keys(svc.Menu(ctx, "s1", "").Entries))
}

func TestMenu_PendingOrdersBadge(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.ViewCommandes)
	svc, notifier := newMenuService(t, f, staticChecker{})
	ctx := context.Background()

	svc.Menu(ctx, "s1", "")
	svc.settle("s1")

	f.bus.Publish(ctx, eventbus.PendingOrdersChanged{
		SessionID: "s1",
		Count:     120,
		Arrived:   []eventbus.PendingOrder{{ID: 9, NumeroCommande: "CMD-9", Service: "Urgences"}},
	})

	msgs := notifier.of(websocket.TypePendingOrders)
	require.Len(t, msgs, 1)
	payload := msgs[0].payload.(websocket.PendingOrdersPayload)
	assert.Equal(t, "99+", payload.Badge)
	assert.Equal(t, "CMD-9", payload.Arrived[0].NumeroCommande)

	menu := svc.Menu(ctx, "s1", "")
	assert.Equal(t, 120, menu.PendingOrders)
	entry, ok := navigation.Menu{Entries: menu.Entries}.Lookup("commandes")
	require.True(t, ok)
	assert.Equal(t, "99+", entry.Badge)
}

func TestMenu_SelectClosesDrawer(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.ViewDashboard, authz.ViewProduits)
	svc, _ := newMenuService(t, f, staticChecker{})
	ctx := context.Background()
	svc.Menu(ctx, "s1", "")
	svc.settle("s1")

	res, err := svc.Select(ctx, "s1", dto.SelectMenuDTO{Key: "produits", DrawerOpen: true})
	require.NoError(t, err)
	assert.Equal(t, "/produits", res.Entry.Path)
	assert.True(t, res.Entry.Active)
	assert.False(t, res.DrawerOpen)

	_, err = svc.Select(ctx, "s1", dto.SelectMenuDTO{Key: "roles"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMenu_AuthErrorForgetsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.ViewDashboard)
	svc, notifier := newMenuService(t, f, staticChecker{})
	ctx := context.Background()
	svc.Menu(ctx, "s1", "")

	f.bus.Publish(ctx, eventbus.AuthError{SessionID: "s1", Reason: "refresh failed"})

	msgs := notifier.of(websocket.TypeAuthError)
	require.Len(t, msgs, 1)
	assert.Equal(t, "refresh failed", msgs[0].payload.(websocket.AuthErrorPayload).Reason)
	_, ok := svc.lookup("s1")
	assert.False(t, ok)
}
