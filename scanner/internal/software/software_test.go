package software

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmppscan/xmppscan/pkg/types"
)

func TestCanonical(t *testing.T) {
	tbl := Default()
	cases := []struct {
		name, version, want string
	}{
		{"jabberd", "1.4.4", "jabberd14"},
		{"jabberd", "2.2.17", "jabberd2"},
		{"jabberd", "3.0", "jabberd"},
		{"Wildfire", "3.2.4", "openfire"},
		{"Openfire Enterprise", "3.6", "openfire"},
		{"Prosody", "0.12.4", "prosody"},
		{"Isode M-Link", "17.0", "isode m-link"},
	}
	for _, c := range cases {
		got := tbl.Canonical(types.Implementation{Name: c.name, Version: c.version})
		assert.Equal(t, c.want, got, "%s %s", c.name, c.version)
	}
}

func TestResolve(t *testing.T) {
	tbl := Default()
	assert.Equal(t, Info{}, tbl.Resolve(nil))
	assert.Equal(t,
		Info{Name: "ejabberd", Homepage: "http://www.process-one.net/en/ejabberd/"},
		tbl.Resolve(&types.Implementation{Name: "ejabberd", Version: "23.01"}))
	assert.Equal(t, Info{Name: "unknownd"}, tbl.Resolve(&types.Implementation{Name: "UnknownD"}))
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "software.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
[aliases]
Snikket = prosody

[homepages]
prosody = https://prosody.im/
mongooseim = https://www.erlang-solutions.com/products/mongooseim/
`), 0o600))

	tbl, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t,
		Info{Name: "prosody", Homepage: "https://prosody.im/"},
		tbl.Resolve(&types.Implementation{Name: "Snikket"}))
	assert.Equal(t,
		"https://www.erlang-solutions.com/products/mongooseim/",
		tbl.Resolve(&types.Implementation{Name: "MongooseIM"}).Homepage)
	assert.Equal(t, "openfire", tbl.Canonical(types.Implementation{Name: "Wildfire"}), "built-ins survive")

	// Overrides never leak into the built-in table.
	assert.Equal(t, "http://prosody.im/", Default().Resolve(&types.Implementation{Name: "prosody"}).Homepage)
}

func TestLoad_EmptyPath(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "jabberd2", tbl.Canonical(types.Implementation{Name: "jabberd", Version: "2.0"}))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	assert.Error(t, err)
}
