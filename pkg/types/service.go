package types

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// ServiceKind is a (category, type) disco identity such as conference/x-muc.
type ServiceKind struct {
	Category string
	Type     string
}

// ParseServiceKind parses the "category/type" text form. Both parts are
// limited to lowercase letters, digits and "_.+-" since kinds end up in file
// names and CSS selectors.
func ParseServiceKind(s string) (ServiceKind, error) {
	cat, typ, ok := strings.Cut(s, "/")
	if !ok || cat == "" || typ == "" {
		return ServiceKind{}, fmt.Errorf("service kind %q: want category/type", s)
	}
	if !validKindPart(cat) || !validKindPart(typ) {
		return ServiceKind{}, fmt.Errorf("service kind %q: only [a-z0-9_.+-] allowed", s)
	}
	return ServiceKind{Category: cat, Type: typ}, nil
}

func validKindPart(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '+', c == '-':
		default:
			return false
		}
	}
	return true
}

// String returns the "category/type" text form.
func (k ServiceKind) String() string {
	return k.Category + "/" + k.Type
}

// Slug returns the "category_type" form used for CSS classes and file names.
func (k ServiceKind) Slug() string {
	return k.Category + "_" + k.Type
}

// Compare orders kinds by category, then type.
func (k ServiceKind) Compare(o ServiceKind) int {
	if c := cmp.Compare(k.Category, o.Category); c != 0 {
		return c
	}
	return cmp.Compare(k.Type, o.Type)
}

// MarshalText implements encoding.TextMarshaler so kinds can key JSON maps.
func (k ServiceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ServiceKind) UnmarshalText(b []byte) error {
	parsed, err := ParseServiceKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Component is one discovered sub-resource of an endpoint offering a service.
type Component struct {
	ID   string // the component's address (JID)
	Node string // optional disco node qualifier
	// Available is inherited from the bucket the component was found in.
	Available bool
}

// Label renders "id (node)" for node-qualified components, else the id.
func (c Component) Label() string {
	if c.Node != "" {
		return c.ID + " (" + c.Node + ")"
	}
	return c.ID
}

func compareComponents(a, b Component) int {
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.Node, b.Node)
}

// Services maps each service kind to the components offering it.
type Services map[ServiceKind][]Component

// Has reports whether at least one component of kind is present.
func (s Services) Has(kind ServiceKind) bool {
	return len(s[kind]) > 0
}

// Count returns the number of components of kind.
func (s Services) Count(kind ServiceKind) int {
	return len(s[kind])
}

// Kinds returns the kinds present, sorted.
func (s Services) Kinds() []ServiceKind {
	out := make([]ServiceKind, 0, len(s))
	for k, comps := range s {
		if len(comps) > 0 {
			out = append(out, k)
		}
	}
	slices.SortFunc(out, ServiceKind.Compare)
	return out
}

// Sorted returns a copy of the components of kind ordered by component id.
func (s Services) Sorted(kind ServiceKind) []Component {
	out := slices.Clone(s[kind])
	slices.SortFunc(out, compareComponents)
	return out
}

// Add appends c under kind.
func (s Services) Add(kind ServiceKind, c Component) {
	s[kind] = append(s[kind], c)
}

// Clone returns a deep copy.
func (s Services) Clone() Services {
	if s == nil {
		return nil
	}
	out := make(Services, len(s))
	for k, comps := range s {
		out[k] = slices.Clone(comps)
	}
	return out
}
