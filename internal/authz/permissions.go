package authz

import "fmt"

// Capability is a permission key as sent by the backend in user/me.
type Capability string

// Action is one of the four CRUD verbs a capability is built from.
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
)

// Standalone capabilities.
const (
	ViewDashboard Capability = "can_view_dashboard"
	ViewJournals  Capability = "can_view_journals"
)

// Resource capabilities.
const (
	ViewProduits   Capability = "can_view_produits"
	AddProduits    Capability = "can_add_produits"
	ChangeProduits Capability = "can_change_produits"
	DeleteProduits Capability = "can_delete_produits"

	ViewLots   Capability = "can_view_lots"
	AddLots    Capability = "can_add_lots"
	ChangeLots Capability = "can_change_lots"
	DeleteLots Capability = "can_delete_lots"

	ViewMouvements   Capability = "can_view_mouvements"
	AddMouvements    Capability = "can_add_mouvements"
	ChangeMouvements Capability = "can_change_mouvements"
	DeleteMouvements Capability = "can_delete_mouvements"

	ViewCommandes   Capability = "can_view_commandes"
	AddCommandes    Capability = "can_add_commandes"
	ChangeCommandes Capability = "can_change_commandes"
	DeleteCommandes Capability = "can_delete_commandes"

	ViewFournisseurs   Capability = "can_view_fournisseurs"
	AddFournisseurs    Capability = "can_add_fournisseurs"
	ChangeFournisseurs Capability = "can_change_fournisseurs"
	DeleteFournisseurs Capability = "can_delete_fournisseurs"

	ViewMagasins   Capability = "can_view_magasins"
	AddMagasins    Capability = "can_add_magasins"
	ChangeMagasins Capability = "can_change_magasins"
	DeleteMagasins Capability = "can_delete_magasins"

	ViewServices   Capability = "can_view_services"
	AddServices    Capability = "can_add_services"
	ChangeServices Capability = "can_change_services"
	DeleteServices Capability = "can_delete_services"

	ViewUtilisateurs   Capability = "can_view_utilisateurs"
	AddUtilisateurs    Capability = "can_add_utilisateurs"
	ChangeUtilisateurs Capability = "can_change_utilisateurs"
	DeleteUtilisateurs Capability = "can_delete_utilisateurs"

	ViewRoles   Capability = "can_view_roles"
	AddRoles    Capability = "can_add_roles"
	ChangeRoles Capability = "can_change_roles"
	DeleteRoles Capability = "can_delete_roles"
)

// ResourceCapabilities groups the four keys guarding one resource.
type ResourceCapabilities struct {
	View   Capability
	Add    Capability
	Change Capability
	Delete Capability
}

// For returns the capability guarding action.
func (rc ResourceCapabilities) For(action Action) (Capability, error) {
	switch action {
	case ActionView:
		return rc.View, nil
	case ActionAdd:
		return rc.Add, nil
	case ActionChange:
		return rc.Change, nil
	case ActionDelete:
		return rc.Delete, nil
	}
	return "", fmt.Errorf("authz: unknown action %q", action)
}

var catalog = map[string]ResourceCapabilities{
	"produits":     {ViewProduits, AddProduits, ChangeProduits, DeleteProduits},
	"lots":         {ViewLots, AddLots, ChangeLots, DeleteLots},
	"mouvements":   {ViewMouvements, AddMouvements, ChangeMouvements, DeleteMouvements},
	"commandes":    {ViewCommandes, AddCommandes, ChangeCommandes, DeleteCommandes},
	"fournisseurs": {ViewFournisseurs, AddFournisseurs, ChangeFournisseurs, DeleteFournisseurs},
	"magasins":     {ViewMagasins, AddMagasins, ChangeMagasins, DeleteMagasins},
	"services":     {ViewServices, AddServices, ChangeServices, DeleteServices},
	"utilisateurs": {ViewUtilisateurs, AddUtilisateurs, ChangeUtilisateurs, DeleteUtilisateurs},
	"roles":        {ViewRoles, AddRoles, ChangeRoles, DeleteRoles},
}

// ForResource looks up the capabilities of a named resource.
func ForResource(name string) (ResourceCapabilities, bool) {
	rc, ok := catalog[name]
	return rc, ok
}

// Known reports whether c belongs to the catalog.
func Known(c Capability) bool {
	if c == ViewDashboard || c == ViewJournals {
		return true
	}
	for _, rc := range catalog {
		if c == rc.View || c == rc.Add || c == rc.Change || c == rc.Delete {
			return true
		}
	}
	return false
}
