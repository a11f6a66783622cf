package eventbus

const (
	PermissionsUpdatedEvent = "permissions.updated"
	StorageChangedEvent     = "storage.changed"
	AuthErrorEvent          = "auth.error"
)

// PermissionsUpdated is raised by the auth flow after it replaced the
// permission map of a session.
type PermissionsUpdated struct {
	SessionID string
}

func (PermissionsUpdated) Name() string { return PermissionsUpdatedEvent }

// StorageChanged is raised whenever a persisted client-state key is written or
// removed, locally or by another process sharing the store.
type StorageChanged struct {
	Key string
}

func (StorageChanged) Name() string { return StorageChangedEvent }

// AuthError means a session could not be re-authenticated and was torn down.
// The shell reacts by sending the user back to the login page.
type AuthError struct {
	SessionID string
	Reason    string
}

func (AuthError) Name() string { return AuthErrorEvent }

const PendingOrdersChangedEvent = "orders.pending_changed"

// PendingOrder is the slice of a draft order the shell shows in a
// notification.
type PendingOrder struct {
	ID             int64  `json:"id"`
	NumeroCommande string `json:"numero_commande"`
	Service        string `json:"service"`
	DateDemande    string `json:"date_demande"`
}

// PendingOrdersChanged carries the new pending count of a session and the
// orders that arrived since the previous poll, newest first.
type PendingOrdersChanged struct {
	SessionID string
	Count     int
	Arrived   []PendingOrder
}

func (PendingOrdersChanged) Name() string { return PendingOrdersChangedEvent }
