package dto

// CartLineDTO is one product of the quick-order cart.
type CartLineDTO struct {
	ProduitID        int64  `json:"produit_id" validate:"required,gt=0"`
	Denomination     string `json:"denomination"`
	QuantiteDemandee int    `json:"quantite_demandee"`
}

type CartDTO struct {
	Lignes []CartLineDTO `json:"lignes"`
}

type AddCartLineDTO struct {
	ProduitID    int64  `json:"produit_id" validate:"required,gt=0"`
	Denomination string `json:"denomination" validate:"max=255"`
}

type SetCartQuantityDTO struct {
	QuantiteDemandee int `json:"quantite_demandee"`
}

type SubmitCartDTO struct {
	// ServiceID defaults to the service of the logged-in user.
	ServiceID *int64 `json:"service_id" validate:"omitempty,gt=0"`
}

// QuickOrderRequestDTO is posted to commandes-rapides/.
type QuickOrderRequestDTO struct {
	ServiceID int64               `json:"service_id"`
	Lignes    []QuickOrderLineDTO `json:"lignes"`
}

type QuickOrderLineDTO struct {
	ProduitID        int64 `json:"produit_id"`
	QuantiteDemandee int   `json:"quantite_demandee"`
}

type QuickOrderResultDTO struct {
	ID             int64  `json:"id,omitempty"`
	NumeroCommande string `json:"numero_commande"`
}
