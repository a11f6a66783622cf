package registry

import (
	"errors"
	"fmt"
	"sync"

	"pharmacie-admin/internal/authz"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/validation"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrAlreadyComposed   = errors.New("registry: resources already registered")
	ErrDuplicateResource = errors.New("registry: duplicate resource")
)

// Labels holds the singular and plural display names of a resource.
type Labels struct {
	One   string `json:"one"`
	Other string `json:"other"`
}

// Views names the shell screens bound to a resource. An empty name means the
// view does not exist.
type Views struct {
	List   string `json:"list,omitempty"`
	Show   string `json:"show,omitempty"`
	Create string `json:"create,omitempty"`
	Edit   string `json:"edit,omitempty"`
}

// Descriptor declares one backend collection to the admin shell.
type Descriptor struct {
	Name   string `json:"name" validate:"required,resource_name"`
	Icon   string `json:"icon,omitempty"`
	Labels Labels `json:"labels"`
	Views  Views  `json:"views"`
}

// Exposure is what a user may actually reach of a visible resource.
type Exposure struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Icon   string `json:"icon,omitempty"`
	List   string `json:"list"`
	Show   string `json:"show,omitempty"`
	Create string `json:"create,omitempty"`
	Edit   string `json:"edit,omitempty"`
	Delete bool   `json:"delete"`
}

// Registry holds the resource descriptors of the application. It is composed
// once at startup and read concurrently afterwards.
type Registry struct {
	mu          sync.RWMutex
	composed    bool
	descriptors []Descriptor
	byName      map[string]int
	validator   *validation.CustomValidator
}

func New() *Registry {
	return &Registry{
		byName:    make(map[string]int),
		validator: validation.New(),
	}
}

// Register validates and stores descriptors. It may succeed only once; a
// rejected batch leaves the registry empty.
func (r *Registry) Register(descriptors ...Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.composed {
		return ErrAlreadyComposed
	}

	byName := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		if err := r.validator.Validate(&d); err != nil {
			return fmt.Errorf("registry: descriptor %q: %w", d.Name, err)
		}
		if _, ok := authz.ForResource(d.Name); !ok {
			return fmt.Errorf("%w: %s", apperrors.ErrUnknownResource, d.Name)
		}
		if _, dup := byName[d.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateResource, d.Name)
		}
		byName[d.Name] = i
	}

	r.descriptors = append([]Descriptor(nil), descriptors...)
	r.byName = byName
	r.composed = true
	return nil
}

// Descriptor returns the registered descriptor of name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Names lists registered resources in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		names = append(names, d.Name)
	}
	return names
}

// VisibleList returns, in registration order, the resources that have a list
// view and whose view capability set grants.
func (r *Registry) VisibleList(set authz.Set) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visible := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		if d.Views.List == "" {
			continue
		}
		if !authz.CanDo(set, d.Name, authz.ActionView) {
			continue
		}
		visible = append(visible, d)
	}
	return visible
}

// Expose resolves the reachable views of every visible resource. Create, edit
// and delete are only exposed with the matching capability.
func (r *Registry) Expose(set authz.Set) []Exposure {
	visible := r.VisibleList(set)
	out := make([]Exposure, 0, len(visible))
	for _, d := range visible {
		e := Exposure{
			Name:  d.Name,
			Label: r.Label(d.Name, 2),
			Icon:  d.Icon,
			List:  d.Views.List,
			Show:  d.Views.Show,
		}
		if authz.CanDo(set, d.Name, authz.ActionAdd) {
			e.Create = d.Views.Create
		}
		if authz.CanDo(set, d.Name, authz.ActionChange) {
			e.Edit = d.Views.Edit
		}
		e.Delete = authz.CanDo(set, d.Name, authz.ActionDelete)
		out = append(out, e)
	}
	return out
}

// Label returns the display name of a resource; count of 2 or more picks the
// plural. Unregistered or unlabeled resources get their name title-cased.
func (r *Registry) Label(name string, count int) string {
	d, ok := r.Descriptor(name)
	if ok {
		if count >= 2 && d.Labels.Other != "" {
			return d.Labels.Other
		}
		if count < 2 && d.Labels.One != "" {
			return d.Labels.One
		}
	}
	// a Caser keeps state, so one per call
	return cases.Title(language.French).String(name)
}
