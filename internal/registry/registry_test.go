package registry

import (
	"testing"

	"pharmacie-admin/internal/authz"
	apperrors "pharmacie-admin/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ds []Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name)
	}
	return out
}

func TestRegister_OnlyOnce(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(crud("produits", "package", "Produit", "Produits")))

	err := r.Register(crud("lots", "box", "Lot", "Lots"))
	assert.ErrorIs(t, err, ErrAlreadyComposed)
	assert.Equal(t, []string{"produits"}, r.Names())
}

func TestRegister_Rejects(t *testing.T) {
	cases := map[string]struct {
		descriptors []Descriptor
		want        error
	}{
		"unknown resource": {
			descriptors: []Descriptor{crud("factures", "", "", "")},
			want:        apperrors.ErrUnknownResource,
		},
		"duplicate": {
			descriptors: []Descriptor{crud("lots", "", "", ""), crud("lots", "", "", "")},
			want:        ErrDuplicateResource,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := New()
			assert.ErrorIs(t, r.Register(tc.descriptors...), tc.want)
			assert.Empty(t, r.Names())

			// a failed batch does not count as composition
			assert.NoError(t, r.Register(crud("lots", "", "", "")))
		})
	}

	r := New()
	assert.Error(t, r.Register(Descriptor{Name: "Produits"}))
	assert.Error(t, r.Register(Descriptor{}))
}

func TestVisibleList_RegistrationOrderAndViewCapability(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	set := authz.Set{
		authz.ViewRoles:     true,
		authz.ViewProduits:  true,
		authz.ViewCommandes: true,
		authz.AddLots:       true,
	}

	assert.Equal(t, []string{"produits", "commandes", "roles"}, names(r.VisibleList(set)))
	assert.Empty(t, r.VisibleList(nil))
	assert.Empty(t, r.VisibleList(authz.Set{}))
}

func TestVisibleList_Idempotent(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	set := authz.Set{authz.ViewLots: true, authz.ViewServices: true}

	first := r.VisibleList(set)
	second := r.VisibleList(set)

	assert.Equal(t, first, second)
}

func TestVisibleList_NeedsListView(t *testing.T) {
	r := New()
	noList := crud("mouvements", "arrow-right-left", "Mouvement", "Mouvements")
	noList.Views.List = ""
	require.NoError(t, r.Register(noList, crud("lots", "box", "Lot", "Lots")))

	set := authz.Set{authz.ViewMouvements: true, authz.ViewLots: true}

	assert.Equal(t, []string{"lots"}, names(r.VisibleList(set)))
	_, registered := r.Descriptor("mouvements")
	assert.True(t, registered)
}

func TestExpose_ViewWithoutAdd(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	exposed := r.Expose(authz.Set{authz.ViewProduits: true, authz.AddProduits: false})

	require.Len(t, exposed, 1)
	got := exposed[0]
	assert.Equal(t, "produits", got.Name)
	assert.Equal(t, "produits.list", got.List)
	assert.Equal(t, "produits.show", got.Show)
	assert.Empty(t, got.Create)
	assert.Empty(t, got.Edit)
	assert.False(t, got.Delete)
}

func TestExpose_FullAccess(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	exposed := r.Expose(authz.Set{
		authz.ViewLots:   true,
		authz.AddLots:    true,
		authz.ChangeLots: true,
		authz.DeleteLots: true,
	})

	require.Len(t, exposed, 1)
	assert.Equal(t, Exposure{
		Name:   "lots",
		Label:  "Lots",
		Icon:   "box",
		List:   "lots.list",
		Show:   "lots.show",
		Create: "lots.create",
		Edit:   "lots.edit",
		Delete: true,
	}, exposed[0])
}

func TestLabel(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Rôles", r.Label("roles", 2))
	assert.Equal(t, "Rôle", r.Label("roles", 1))
	assert.Equal(t, "Journaux", r.Label("journaux", 2))
}
