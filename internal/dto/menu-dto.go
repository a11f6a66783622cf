package dto

import "pharmacie-admin/internal/navigation"

type MenuDTO struct {
	Entries       []navigation.Entry `json:"entries"`
	PendingOrders int                `json:"pending_orders"`
	DrawerOpen    bool               `json:"drawer_open"`
}

type SelectMenuDTO struct {
	Key        string `json:"key" validate:"required"`
	DrawerOpen bool   `json:"drawer_open"`
}

type SelectMenuResultDTO struct {
	Entry      navigation.Entry `json:"entry"`
	DrawerOpen bool             `json:"drawer_open"`
}
