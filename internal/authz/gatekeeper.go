package authz

import (
	"encoding/json"
	"maps"
)

// Set is the permission map of one user. A missing key means denied.
type Set map[Capability]bool

// ParseSet decodes a persisted or backend permission map. Only values that are
// exactly JSON true grant a capability; strings, numbers and null do not.
func ParseSet(raw []byte) (Set, error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return FromMap(decoded), nil
}

// FromMap builds a Set from loosely typed data, keeping exact true values only.
func FromMap(m map[string]any) Set {
	set := make(Set, len(m))
	for k, v := range m {
		if b, ok := v.(bool); ok && b {
			set[Capability(k)] = true
		}
	}
	return set
}

// Clone returns an independent copy. A nil set clones to an empty one.
func (s Set) Clone() Set {
	if s == nil {
		return Set{}
	}
	return maps.Clone(s)
}

// Can answers whether set grants capability. It never errs on the side of
// access: a nil set or an unknown key is a denial.
func Can(set Set, capability Capability) bool {
	return set[capability]
}

// CanAny is true when at least one of capabilities is granted.
func CanAny(set Set, capabilities ...Capability) bool {
	for _, c := range capabilities {
		if set[c] {
			return true
		}
	}
	return false
}

// CanDo resolves the capability of action on resource through the catalog and
// checks it. Resources outside the catalog are denied.
func CanDo(set Set, resource string, action Action) bool {
	rc, ok := ForResource(resource)
	if !ok {
		return false
	}
	c, err := rc.For(action)
	if err != nil {
		return false
	}
	return Can(set, c)
}
