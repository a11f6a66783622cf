package dto

import "github.com/aarondl/null/v8"

type JournalDTO struct {
	ID                int64       `json:"id"`
	Categorie         string      `json:"categorie"`
	Action            string      `json:"action"`
	Description       string      `json:"description"`
	Utilisateur       null.String `json:"utilisateur"`
	EntityType        null.String `json:"entity_type"`
	EntityID          null.Int64  `json:"entity_id"`
	EntityDescription null.String `json:"entity_description"`
	AncienStatut      null.String `json:"ancien_statut"`
	NouveauStatut     null.String `json:"nouveau_statut"`
	DateCreation      string      `json:"date_creation"`
}

type JournalPageDTO struct {
	Results []JournalDTO `json:"results"`
	Count   int          `json:"count"`
}

type JournalFilterDTO struct {
	Categorie string `query:"categorie" validate:"omitempty,oneof=ALL COMMANDE STOCK PRODUIT UTILISATEUR SYSTEM"`
	Search    string `query:"q"`
	Page      int    `query:"page" validate:"omitempty,gte=1"`
}
