package navigation

// Drawer is the collapsible menu container of small screens.
type Drawer interface {
	IsOpen() bool
	Close()
}

// Menu is one composed side menu.
type Menu struct {
	Entries []Entry `json:"entries"`
}

// Lookup finds the entry with key.
func (m Menu) Lookup(key string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Key == key && !e.Placeholder {
			return e, true
		}
	}
	return Entry{}, false
}

// Select activates the entry with key. An open drawer is closed so the chosen
// screen is visible. Unknown keys and placeholders select nothing.
func (m Menu) Select(key string, drawer Drawer) (Entry, bool) {
	e, ok := m.Lookup(key)
	if !ok {
		return Entry{}, false
	}
	if drawer != nil && drawer.IsOpen() {
		drawer.Close()
	}
	return e, true
}

// MobileDrawer is the drawer state of a shell session.
type MobileDrawer struct {
	Open bool
}

func (d *MobileDrawer) IsOpen() bool { return d.Open }

func (d *MobileDrawer) Close() { d.Open = false }
