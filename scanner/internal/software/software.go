// Package software maps the server software names reported by servers to a
// canonical implementation name and its project homepage.
//
// A built-in table covers the common implementations. An optional INI file
// extends or overrides it:
//
//	[aliases]
//	Wildfire = openfire
//
//	[homepages]
//	prosody = https://prosody.im/
package software

import (
	"fmt"
	"maps"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/xmppscan/xmppscan/pkg/types"
)

var defaultAliases = map[string]string{
	"wildfire":            "openfire",
	"openfire enterprise": "openfire",
}

var defaultHomepages = map[string]string{
	"jabberd14":    "http://jabberd.org/",
	"jabberd2":     "http://jabberd2.xiaoka.com/",
	"ejabberd":     "http://www.process-one.net/en/ejabberd/",
	"isode m-link": "http://www.isode.com/evaluate/instant-messaging-xmpp.html",
	"openfire":     "http://www.igniterealtime.org/projects/openfire/index.jsp",
	"prosody":      "http://prosody.im/",
	"tigase":       "http://www.tigase.org/",
	"metronome":    "http://www.lightwitch.org/metronome",
}

// Table resolves implementation names. The zero value is not usable; use
// Default or Load.
type Table struct {
	aliases   map[string]string // lowercased reported name -> canonical name
	homepages map[string]string // canonical name -> URL
}

// Info is a resolved implementation.
type Info struct {
	Name     string // canonical, lowercase
	Homepage string // empty when unknown
}

// Default returns the built-in table.
func Default() *Table {
	return &Table{
		aliases:   maps.Clone(defaultAliases),
		homepages: maps.Clone(defaultHomepages),
	}
}

// Load returns the built-in table extended by the INI file at path. An empty
// path yields Default().
func Load(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("software: load %q: %w", path, err)
	}
	for _, k := range f.Section("aliases").Keys() {
		name, canonical := strings.ToLower(strings.TrimSpace(k.Name())), strings.ToLower(strings.TrimSpace(k.String()))
		if name == "" || canonical == "" {
			return nil, fmt.Errorf("software: %s: empty alias %q", path, k.Name())
		}
		t.aliases[name] = canonical
	}
	for _, k := range f.Section("homepages").Keys() {
		name := strings.ToLower(strings.TrimSpace(k.Name()))
		if name == "" {
			continue
		}
		t.homepages[name] = strings.TrimSpace(k.String())
	}
	return t, nil
}

// Canonical returns the canonical name of impl. jabberd is split by major
// version into jabberd14 and jabberd2.
func (t *Table) Canonical(impl types.Implementation) string {
	name := strings.ToLower(strings.TrimSpace(impl.Name))
	if name == "jabberd" {
		switch {
		case strings.HasPrefix(impl.Version, "1."):
			return "jabberd14"
		case strings.HasPrefix(impl.Version, "2."):
			return "jabberd2"
		}
	}
	if alias, ok := t.aliases[name]; ok {
		return alias
	}
	return name
}

// Resolve returns the canonical name and homepage of impl. A nil impl
// resolves to the zero Info.
func (t *Table) Resolve(impl *types.Implementation) Info {
	if impl == nil {
		return Info{}
	}
	name := t.Canonical(*impl)
	return Info{Name: name, Homepage: t.homepages[name]}
}
