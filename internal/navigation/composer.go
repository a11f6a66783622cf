package navigation

import (
	"strconv"
	"strings"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/registry"
)

const (
	defaultIcon = "list"
	// Badge text shown once the pending count no longer fits.
	badgeOverflow = "99+"
	// ordersResource carries the pending-orders badge.
	ordersResource = "commandes"
)

// Entry is one item of the side menu.
type Entry struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Path        string `json:"path"`
	Icon        string `json:"icon"`
	Active      bool   `json:"active"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Badge       string `json:"badge,omitempty"`
}

type staticEntry struct {
	key, label, path, icon string
	allowed                func(authz.Set) bool
}

var staticEntries = []staticEntry{
	{"dashboard", "Dashboard", "/dashboard", "layout-dashboard", func(s authz.Set) bool {
		return authz.Can(s, authz.ViewDashboard)
	}},
	{"commandes-rapides", "Nouvelle Commande", "/commandes-rapides", "zap", func(s authz.Set) bool {
		return authz.Can(s, authz.AddCommandes)
	}},
	{"stock-reception", "Réception Stock", "/stock-reception", "package-plus", func(s authz.Set) bool {
		return authz.Can(s, authz.AddLots)
	}},
	{"stock", "Stock", "/stock", "warehouse", func(s authz.Set) bool {
		return authz.CanAny(s, authz.ViewLots, authz.ViewProduits)
	}},
	{"journals", "Journaux", "/journals", "book-open", func(s authz.Set) bool {
		return authz.Can(s, authz.ViewJournals)
	}},
}

// Input is everything one composition depends on.
type Input struct {
	Permissions authz.Set
	// Path is the route the shell currently shows.
	Path string
	// Decide reports the backend access decision for listing a resource. Nil
	// means the permission set alone decides.
	Decide        func(resource string) authz.Decision
	PendingOrders int
}

// Composer builds the side menu from the registry and the capability gate.
type Composer struct {
	registry *registry.Registry
}

func NewComposer(r *registry.Registry) *Composer {
	return &Composer{registry: r}
}

// Compose returns the static entries followed by one entry per visible
// resource. Resources whose access check is still pending keep their slot as
// a placeholder; denied ones are left out.
func (c *Composer) Compose(in Input) Menu {
	entries := make([]Entry, 0, len(staticEntries)+len(c.registry.Names()))

	for _, s := range staticEntries {
		if !s.allowed(in.Permissions) {
			continue
		}
		entries = append(entries, Entry{
			Key:    s.key,
			Label:  s.label,
			Path:   s.path,
			Icon:   s.icon,
			Active: in.Path == s.path,
		})
	}

	for _, d := range c.registry.VisibleList(in.Permissions) {
		to := "/" + d.Name
		if in.Decide != nil {
			switch in.Decide(d.Name) {
			case authz.DecisionPending:
				entries = append(entries, Entry{Key: d.Name, Path: to, Placeholder: true})
				continue
			case authz.DecisionDenied:
				continue
			}
		}

		icon := d.Icon
		if icon == "" {
			icon = defaultIcon
		}
		e := Entry{
			Key:    d.Name,
			Label:  c.registry.Label(d.Name, 2),
			Path:   to,
			Icon:   icon,
			Active: isUnder(in.Path, to),
		}
		if d.Name == ordersResource {
			e.Badge = Badge(in.PendingOrders)
		}
		entries = append(entries, e)
	}

	return Menu{Entries: entries}
}

func isUnder(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Badge renders a pending count for the menu.
func Badge(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > 99:
		return badgeOverflow
	}
	return strconv.Itoa(count)
}
