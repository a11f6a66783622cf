package dto

import "github.com/aarondl/null/v8"

// ReceptionLineDTO is one received lot.
type ReceptionLineDTO struct {
	ProduitID       int64        `json:"produit_id" validate:"required,gt=0"`
	NumeroLot       string       `json:"numero_lot" validate:"required,max=100"`
	Quantite        int          `json:"quantite" validate:"required,gt=0"`
	DateFabrication null.String  `json:"date_fabrication" validate:"omitempty,datetime=2006-01-02"`
	DatePeremption  string       `json:"date_peremption" validate:"required,datetime=2006-01-02,date_after=DateFabrication"`
	PrixUnitaire    null.Float64 `json:"prix_unitaire" validate:"omitempty,gte=0"`
}

type StockReceptionDTO struct {
	FournisseurID int64              `json:"fournisseur_id" validate:"required,gt=0"`
	Lignes        []ReceptionLineDTO `json:"lignes" validate:"required,min=1,dive"`
}

type ReceivedLotDTO struct {
	ProduitDenomination string `json:"produit_denomination"`
	NumeroLot           string `json:"numero_lot"`
	Quantite            int    `json:"quantite"`
}

type StockReceptionResultDTO struct {
	NombreLots     int              `json:"nombre_lots"`
	FournisseurNom string           `json:"fournisseur_nom"`
	Lots           []ReceivedLotDTO `json:"lots"`
}
