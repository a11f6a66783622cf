package navigation

import (
	"testing"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComposer(t *testing.T) *Composer {
	t.Helper()
	r, err := registry.Default()
	require.NoError(t, err)
	return NewComposer(r)
}

func keys(m Menu) []string {
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Key)
	}
	return out
}

func TestCompose_EmptySetHasNoEntries(t *testing.T) {
	c := newComposer(t)

	assert.Empty(t, c.Compose(Input{}).Entries)
	assert.Empty(t, c.Compose(Input{Permissions: authz.Set{authz.ViewDashboard: false}}).Entries)
}

func TestCompose_StaticOrderThenResources(t *testing.T) {
	c := newComposer(t)

	menu := c.Compose(Input{Permissions: authz.Set{
		authz.ViewJournals:  true,
		authz.ViewDashboard: true,
		authz.AddCommandes:  true,
		authz.AddLots:       true,
		authz.ViewLots:      true,
		authz.ViewRoles:     true,
	}})

	assert.Equal(t, []string{
		"dashboard", "commandes-rapides", "stock-reception", "stock", "journals",
		"lots", "roles",
	}, keys(menu))
}

func TestCompose_StockIsEitherCapability(t *testing.T) {
	c := newComposer(t)

	for name, set := range map[string]authz.Set{
		"lots":     {authz.ViewLots: true},
		"produits": {authz.ViewProduits: true},
	} {
		t.Run(name, func(t *testing.T) {
			e, ok := c.Compose(Input{Permissions: set}).Lookup("stock")
			require.True(t, ok)
			assert.Equal(t, "/stock", e.Path)
		})
	}

	_, ok := c.Compose(Input{Permissions: authz.Set{authz.ViewMouvements: true}}).Lookup("stock")
	assert.False(t, ok)
}

func TestCompose_ActiveState(t *testing.T) {
	c := newComposer(t)
	set := authz.Set{authz.ViewCommandes: true, authz.AddCommandes: true}

	show := c.Compose(Input{Permissions: set, Path: "/commandes/12/show"})
	orders, _ := show.Lookup("commandes")
	quick, _ := show.Lookup("commandes-rapides")
	assert.True(t, orders.Active)
	assert.False(t, quick.Active)

	other := c.Compose(Input{Permissions: set, Path: "/commandesx"})
	orders, _ = other.Lookup("commandes")
	assert.False(t, orders.Active)

	exact := c.Compose(Input{Permissions: set, Path: "/commandes-rapides"})
	quick, _ = exact.Lookup("commandes-rapides")
	orders, _ = exact.Lookup("commandes")
	assert.True(t, quick.Active)
	assert.False(t, orders.Active)

	// static entries only match exactly
	sub := c.Compose(Input{Permissions: set, Path: "/commandes-rapides/recap"})
	quick, _ = sub.Lookup("commandes-rapides")
	assert.False(t, quick.Active)
}

func TestCompose_PendingDecisionIsPlaceholder(t *testing.T) {
	c := newComposer(t)
	decisions := map[string]authz.Decision{
		"produits":  authz.DecisionPending,
		"lots":      authz.DecisionDenied,
		"commandes": authz.DecisionAllowed,
	}

	menu := c.Compose(Input{
		Permissions: authz.Set{authz.ViewProduits: true, authz.ViewLots: true, authz.ViewCommandes: true},
		Decide:      func(resource string) authz.Decision { return decisions[resource] },
	})

	require.Len(t, menu.Entries, 3)
	assert.Equal(t, "stock", menu.Entries[0].Key)
	assert.Equal(t, Entry{Key: "produits", Path: "/produits", Placeholder: true}, menu.Entries[1])
	assert.Equal(t, "commandes", menu.Entries[2].Key)
	assert.Equal(t, "Commandes", menu.Entries[2].Label)
	assert.Equal(t, "shopping-cart", menu.Entries[2].Icon)

	_, ok := menu.Lookup("produits")
	assert.False(t, ok)
}

func TestCompose_IconFallback(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.Descriptor{
		Name:  "magasins",
		Views: registry.Views{List: "magasins.list"},
	}))

	menu := NewComposer(r).Compose(Input{Permissions: authz.Set{authz.ViewMagasins: true}})

	require.Len(t, menu.Entries, 1)
	assert.Equal(t, "list", menu.Entries[0].Icon)
	assert.Equal(t, "Magasins", menu.Entries[0].Label)
}

func TestCompose_OrdersBadge(t *testing.T) {
	c := newComposer(t)
	set := authz.Set{authz.ViewCommandes: true, authz.ViewServices: true}

	menu := c.Compose(Input{Permissions: set, PendingOrders: 7})
	orders, _ := menu.Lookup("commandes")
	services, _ := menu.Lookup("services")
	assert.Equal(t, "7", orders.Badge)
	assert.Empty(t, services.Badge)
}

func TestBadge(t *testing.T) {
	assert.Equal(t, "", Badge(0))
	assert.Equal(t, "", Badge(-3))
	assert.Equal(t, "1", Badge(1))
	assert.Equal(t, "99", Badge(99))
	assert.Equal(t, "99+", Badge(100))
	assert.Equal(t, "99+", Badge(150))
}

func TestSelect_ClosesOpenDrawer(t *testing.T) {
	c := newComposer(t)
	menu := c.Compose(Input{Permissions: authz.Set{authz.ViewJournals: true}})

	drawer := &MobileDrawer{Open: true}
	e, ok := menu.Select("journals", drawer)
	require.True(t, ok)
	assert.Equal(t, "/journals", e.Path)
	assert.False(t, drawer.IsOpen())

	closed := &MobileDrawer{}
	_, ok = menu.Select("journals", closed)
	assert.True(t, ok)
	assert.False(t, closed.IsOpen())

	stillOpen := &MobileDrawer{Open: true}
	_, ok = menu.Select("dashboard", stillOpen)
	assert.False(t, ok)
	assert.True(t, stillOpen.IsOpen())

	_, ok = menu.Select("journals", nil)
	assert.True(t, ok)
}
