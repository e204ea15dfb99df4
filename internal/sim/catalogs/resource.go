package catalogs

import (
	"fmt"
	"strings"
)

type ResourceKind uint8

const (
	ResourceItem ResourceKind = iota + 1
	ResourceLiquid
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceItem:
		return "item"
	case ResourceLiquid:
		return "liquid"
	default:
		return "unknown"
	}
}

// Resource identifies an item or a liquid. It is comparable and used as a
// map key; the zero value means "no resource".
type Resource struct {
	Kind ResourceKind
	ID   string
}

func Item(id string) Resource   { return Resource{Kind: ResourceItem, ID: id} }
func Liquid(id string) Resource { return Resource{Kind: ResourceLiquid, ID: id} }

func (r Resource) IsZero() bool { return r == Resource{} }

func (r Resource) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Kind.String() + ":" + r.ID
}

// ParseResource accepts "item:<id>", "liquid:<id>" or a bare item id.
func ParseResource(s string) (Resource, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Resource{}, fmt.Errorf("empty resource")
	}
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Item(s), nil
	}
	if id == "" {
		return Resource{}, fmt.Errorf("resource %q: empty id", s)
	}
	switch kind {
	case "item":
		return Item(id), nil
	case "liquid":
		return Liquid(id), nil
	default:
		return Resource{}, fmt.Errorf("resource %q: unknown kind %q", s, kind)
	}
}

func (r Resource) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Resource) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = Resource{}
		return nil
	}
	v, err := ParseResource(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
