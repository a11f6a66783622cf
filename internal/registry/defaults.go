package registry

// Pharmacy resources in menu order. Icons are lucide names.
var pharmacyResources = []Descriptor{
	crud("produits", "package", "Produit", "Produits"),
	crud("lots", "box", "Lot", "Lots"),
	crud("mouvements", "arrow-right-left", "Mouvement", "Mouvements"),
	crud("fournisseurs", "truck", "Fournisseur", "Fournisseurs"),
	crud("commandes", "shopping-cart", "Commande", "Commandes"),
	crud("magasins", "building-2", "Magasin", "Magasins"),
	crud("services", "users", "Service", "Services"),
	crud("utilisateurs", "user-cog", "Utilisateur", "Utilisateurs"),
	crud("roles", "shield", "Rôle", "Rôles"),
}

func crud(name, icon, one, other string) Descriptor {
	return Descriptor{
		Name:   name,
		Icon:   icon,
		Labels: Labels{One: one, Other: other},
		Views: Views{
			List:   name + ".list",
			Show:   name + ".show",
			Create: name + ".create",
			Edit:   name + ".edit",
		},
	}
}

// Default returns a registry composed with the pharmacy resources.
func Default() (*Registry, error) {
	r := New()
	if err := r.Register(pharmacyResources...); err != nil {
		return nil, err
	}
	return r, nil
}
