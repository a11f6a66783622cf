package websocket

import "time"

// Message types pushed to the shell.
const (
	TypeMenuChanged   = "menu.changed"
	TypePendingOrders = "orders.pending"
	TypeAuthError     = "auth.error"
)

// Envelope wraps every message so the shell can dispatch on Type.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// PendingOrdersPayload feeds the orders badge and the new-order toast.
type PendingOrdersPayload struct {
	Count   int            `json:"count"`
	Badge   string         `json:"badge"`
	Arrived []ArrivedOrder `json:"arrived,omitempty"`
}

type ArrivedOrder struct {
	ID             int64  `json:"id"`
	NumeroCommande string `json:"numero_commande"`
	Service        string `json:"service"`
}

type AuthErrorPayload struct {
	Reason string `json:"reason"`
}
