package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmppscan/xmppscan/pkg/types"
)

var (
	baseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	muc      = types.ServiceKind{Category: "conference", Type: "x-muc"}
	proxy    = types.ServiceKind{Category: "proxy", Type: "bytestreams"}
)

func records() []*types.EndpointRecord {
	down := baseTime.Add(-48 * time.Hour)
	ready := true
	return []*types.EndpointRecord{
		{
			ID:                  "z.example",
			OfflineSince:        &down,
			AvailableServices:   types.Services{},
			UnavailableServices: types.Services{proxy: {{ID: "proxy.z.example"}}},
			TimesQueriedOnline:  1,
			TimesQueriedTotal:   3,
		},
		{
			ID:        "a.example",
			Available: true,
			AvailableServices: types.Services{muc: {
				{ID: "muc2.a.example", Available: true},
				{ID: "muc.a.example", Node: "rooms", Available: true},
			}},
			UnavailableServices: types.Services{},
			Metadata:            map[string]string{types.FieldDescription: "Fast & friendly", types.FieldCity: "Paris"},
			Implementation:      &types.Implementation{Name: "ejabberd", Version: "23.01"},
			IPv6Ready:           &ready,
			TimesQueriedOnline:  2,
			TimesQueriedTotal:   3,
		},
	}
}

func TestBuild(t *testing.T) {
	doc := Build(records(), 0, baseTime)
	require.Len(t, doc.Servers, 2)
	assert.Equal(t, "2026-01-02T03:04:05Z", doc.GeneratedAt)

	a, z := doc.Servers[0], doc.Servers[1]
	assert.Equal(t, "a.example", a.JID)
	assert.Equal(t, []Field{{"city", "Paris"}, {"description", "Fast & friendly"}}, a.About)
	require.Len(t, a.AvailableServices, 1)
	assert.Equal(t, []Component{{JID: "muc.a.example", Node: "rooms"}, {JID: "muc2.a.example"}}, a.AvailableServices[0].Components)
	assert.Empty(t, a.OfflineSince)

	assert.Equal(t, "2025-12-31T03:04:05Z", z.OfflineSince)
	assert.False(t, z.Available)
	assert.Nil(t, z.Implementation)
}

func TestBuild_Filter(t *testing.T) {
	doc := Build(records(), 0.5, baseTime)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "a.example", doc.Servers[0].JID)
}

func TestWrite_XML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.xml")
	require.NoError(t, Write(path, FormatXML, Build(records(), 0, baseTime), true))
	assert.FileExists(t, path+".gz")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := xmlquery.Parse(f)
	require.NoError(t, err)

	servers := xmlquery.Find(doc, "//servers/server")
	require.Len(t, servers, 2)
	assert.Equal(t, "a.example", servers[0].SelectAttr("jid"))
	assert.Equal(t, "true", servers[0].SelectAttr("ipv6_ready"))
	assert.Equal(t, "ejabberd", xmlquery.FindOne(servers[0], "implementation").SelectAttr("name"))
	assert.Equal(t, "Fast & friendly", xmlquery.FindOne(servers[0], "about/field[@name='description']").InnerText())
	assert.Len(t, xmlquery.Find(servers[0], "available_services/service[@category='conference']/component"), 2)
	assert.Equal(t, "proxy.z.example",
		xmlquery.FindOne(servers[1], "unavailable_services/service/component").SelectAttr("jid"))
}

func TestWrite_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	require.NoError(t, Write(path, FormatJSON, Build(records(), 0, baseTime), false))
	assert.NoFileExists(t, path+".gz")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		Servers []struct {
			JID               string `json:"jid"`
			AvailableServices []struct {
				Type string `json:"type"`
			} `json:"available_services"`
		} `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Servers, 2)
	assert.Equal(t, "x-muc", got.Servers[0].AvailableServices[0].Type)
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode(&Document{}, "yaml")
	assert.Error(t, err)
}

func TestSQLiteSink_Replace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.db")
	sink, err := OpenSQLite(path)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Replace(ctx, records(), baseTime))
	// A second run replaces rather than appends.
	require.NoError(t, sink.Replace(ctx, records()[1:], baseTime.Add(time.Hour)))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM servers`).Scan(&n))
	assert.Equal(t, 1, n)

	var impl, updated string
	var online, total int
	require.NoError(t, db.QueryRow(
		`SELECT implementation, times_online, times_queried, updated_at FROM servers WHERE jid = ?`, "a.example",
	).Scan(&impl, &online, &total, &updated))
	assert.Equal(t, "ejabberd", impl)
	assert.Equal(t, 2, online)
	assert.Equal(t, 3, total)
	assert.Equal(t, "2026-01-02T04:04:05Z", updated)

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM services WHERE category = 'conference'`).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM services WHERE jid = 'z.example'`).Scan(&n))
	assert.Equal(t, 0, n)
}
