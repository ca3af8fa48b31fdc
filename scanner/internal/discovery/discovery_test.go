package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmppscan/xmppscan/pkg/types"
)

const output = `{
  "jabber.org": {
    "available": true,
    "available_services": {
      "conference/x-muc": [{"jid": "conference.jabber.org"}, {"jid": ""}],
      "pubsub/service": [{"jid": "pubsub.jabber.org", "node": "news"}]
    },
    "unavailable_services": {
      "proxy/bytestreams": [{"jid": "proxy.jabber.org"}]
    },
    "version": {"name": "ejabberd", "version": "23.01"},
    "ipv6_ready": true,
    "uptime": 90061
  },
  "down.org": {"available": false, "available_services": {}, "unavailable_services": {}},
  "stray.org": {"available": true}
}`

var (
	muc   = types.ServiceKind{Category: "conference", Type: "x-muc"}
	proxy = types.ServiceKind{Category: "proxy", Type: "bytestreams"}
)

func writeOutput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "discovery.json")
	require.NoError(t, os.WriteFile(path, []byte(output), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	res, err := Load(writeOutput(t))
	require.NoError(t, err)
	require.Len(t, res, 3)

	jo := res["jabber.org"]
	assert.True(t, jo.Available)
	assert.Len(t, jo.AvailableServices[muc], 2)
	assert.Equal(t, "news", jo.AvailableServices[types.ServiceKind{Category: "pubsub", Type: "service"}][0].Node)
	require.NotNil(t, jo.Version)
	assert.Equal(t, "ejabberd", jo.Version.Name)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discovery.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": {"available_services": {"bad-kind": []}}}`), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestAssemble(t *testing.T) {
	res, err := Load(writeOutput(t))
	require.NoError(t, err)

	meta := map[string]map[string]string{"jabber.org": {"description": "The original"}}
	recs := Assemble([]string{"down.org", "jabber.org", "silent.org"}, res, meta)
	require.Len(t, recs, 3)

	down, jo, silent := recs[0], recs[1], recs[2]

	assert.Equal(t, "jabber.org", jo.ID)
	assert.True(t, jo.Available)
	assert.Equal(t, 1, jo.AvailableServices.Count(muc), "components without an address are dropped")
	assert.True(t, jo.AvailableServices[muc][0].Available)
	assert.False(t, jo.UnavailableServices[proxy][0].Available)
	assert.Equal(t, &types.Implementation{Name: "ejabberd", Version: "23.01"}, jo.Implementation)
	require.NotNil(t, jo.IPv6Ready)
	assert.True(t, *jo.IPv6Ready)
	require.NotNil(t, jo.Uptime)
	assert.Equal(t, 25*time.Hour+time.Minute+time.Second, *jo.Uptime)
	assert.Equal(t, "The original", jo.Meta(types.FieldDescription))

	assert.False(t, down.Available)
	assert.Nil(t, down.Metadata)

	assert.Equal(t, "silent.org", silent.ID)
	assert.False(t, silent.Available, "targets without a result are unavailable")
	assert.Empty(t, silent.AvailableServices)

	meta["jabber.org"]["description"] = "mutated"
	assert.Equal(t, "The original", jo.Meta(types.FieldDescription), "metadata is copied")
}
