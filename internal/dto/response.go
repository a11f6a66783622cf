package dto

import "pharmacie-admin/internal/dataprovider"

// ListResponseDTO is a page of records. Degraded marks an empty page served
// because the backend could not be reached.
type ListResponseDTO struct {
	Data     []dataprovider.Record `json:"data"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page,omitempty"`
	PerPage  int                   `json:"per_page,omitempty"`
	Degraded bool                  `json:"degraded,omitempty"`
}

type RecordResponseDTO struct {
	Data     dataprovider.Record `json:"data"`
	Degraded bool                `json:"degraded,omitempty"`
}
