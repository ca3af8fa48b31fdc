package run

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmppscan/xmppscan/scanner/internal/config"
	"github.com/xmppscan/xmppscan/scanner/internal/history"
	"github.com/xmppscan/xmppscan/scanner/internal/reconcile"
)

var baseTime = time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)

func day(n int) time.Time { return baseTime.Add(time.Duration(n) * 24 * time.Hour) }

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

const feedXML = `<query>
  <item jid="a.example"><description>Chat</description></item>
  <item jid="b.example"><description>Server B</description><country>Spain</country></item>
</query>`

const feedJSON = `[{"jid": "a.example", "description": "Chat server for everyone"}]`

const targetsXML = `<items><item jid="c.example"/></items>`

const discoveryAllUp = `{
  "a.example": {"available": true,
    "available_services": {"conference/x-muc": [{"jid": "muc.a.example"}]},
    "version": {"name": "Prosody", "version": "0.12"}},
  "b.example": {"available": true},
  "c.example": {"available": true}
}`

const discoveryBDown = `{
  "a.example": {"available": true},
  "b.example": {"available": false},
  "c.example": {"available": true}
}`

type fixture struct {
	dir string
	cfg *config.Config
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "feeds", "xmpp.xml"), feedXML)
	write(t, filepath.Join(dir, "feeds", "extra.json"), feedJSON)
	write(t, filepath.Join(dir, "targets.xml"), targetsXML)
	write(t, filepath.Join(dir, "discovery.json"), discoveryAllUp)

	zero, half := 0.0, 0.5
	cfg := &config.Config{
		Scanner: config.ScannerConfig{
			StateFile:     filepath.Join(dir, "servers.dump"),
			RetentionDays: 30,
			TargetsFile:   filepath.Join(dir, "targets.xml"),
			Feeds: []config.Feed{
				{ID: "xmpp.org", Path: filepath.Join(dir, "feeds", "xmpp.xml"), Format: "xml"},
				{ID: "extra", Path: filepath.Join(dir, "feeds", "extra.json"), Format: "json"},
			},
			DiscoveryResults: filepath.Join(dir, "discovery.json"),
			Output: config.OutputConfig{
				Directory: filepath.Join(dir, "out"),
				HTML: config.HTMLConfig{
					Enabled:        true,
					Prefix:         "servers",
					MinReliability: &zero,
					HeaderEvery:    10,
					Columns:        []string{"conference/x-muc", "proxy/bytestreams"},
				},
				Export: config.ExportConfig{
					Enabled:        true,
					Filename:       "servers.xml",
					Format:         "xml",
					MinReliability: &half,
				},
				Compress:        true,
				MetricsTextfile: filepath.Join(dir, "xmppscan.prom"),
			},
			Database: config.DatabaseConfig{Path: filepath.Join(dir, "servers.db")},
		},
		Log: config.LogConfig{Level: "info"},
	}
	return &fixture{dir: dir, cfg: cfg}
}

func (f *fixture) runAt(t *testing.T, at time.Time) (*Result, error) {
	t.Helper()
	r := New(f.cfg)
	r.Version = "test"
	r.now = fixedClock(at)
	return r.Run(context.Background())
}

func TestRun_TwoRuns(t *testing.T) {
	f := newFixture(t)

	res, err := f.runAt(t, day(0))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Endpoints)
	assert.Equal(t, 3, res.Online)

	write(t, f.cfg.Scanner.DiscoveryResults, discoveryBDown)
	res, err = f.runAt(t, day(1))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, 2, res.Online)

	snap, err := history.NewStore(f.cfg.Scanner.StateFile).Load()
	require.NoError(t, err)
	require.Equal(t, 3, snap.Len())

	a, _ := snap.Get("a.example")
	assert.Equal(t, "Chat server for everyone", a.Meta("description"), "longer feed value wins")
	assert.Equal(t, 2, a.TimesQueriedOnline)

	b, _ := snap.Get("b.example")
	require.NotNil(t, b.OfflineSince)
	assert.True(t, b.OfflineSince.Equal(day(1)))
	assert.Equal(t, 1, b.TimesQueriedOnline)
	assert.Equal(t, 2, b.TimesQueriedTotal)
	assert.Equal(t, "Spain", b.Meta("country"))

	out := f.cfg.Scanner.Output.Directory
	for _, name := range []string{
		"servers.html", "servers_by_conference_x-muc.html", "servers_by_proxy_bytestreams.html",
		"servers_by_uptime.html", "servers_by_times_online.html",
	} {
		assert.FileExists(t, filepath.Join(out, name))
		assert.FileExists(t, filepath.Join(out, name+".gz"))
	}
	assert.Len(t, res.Views, 5)

	fh, err := os.Open(filepath.Join(out, "servers_by_uptime.html"))
	require.NoError(t, err)
	defer fh.Close()
	doc, err := goquery.NewDocumentFromReader(fh)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("tr.offline").Length())

	// b.example is at 1/2 and the export threshold is 0.5.
	export, err := os.ReadFile(filepath.Join(out, "servers.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(export), `jid="a.example"`)
	assert.NotContains(t, string(export), `jid="b.example"`)

	assert.FileExists(t, f.cfg.Scanner.Output.MetricsTextfile)
	assert.FileExists(t, f.cfg.Scanner.Database.Path)
}

func TestRun_NoTargetsIsFatal(t *testing.T) {
	f := newFixture(t)
	write(t, f.cfg.Scanner.Feeds[0].Path, `<query/>`)
	write(t, f.cfg.Scanner.Feeds[1].Path, `[]`)
	f.cfg.Scanner.TargetsFile = ""

	_, err := f.runAt(t, day(0))
	require.ErrorIs(t, err, reconcile.ErrNoTargets)
	assert.NoFileExists(t, f.cfg.Scanner.StateFile, "nothing is written on a fatal error")
	assert.NoDirExists(t, f.cfg.Scanner.Output.Directory)
}

func TestRun_UnreadableInputsAreFatal(t *testing.T) {
	cases := map[string]func(*config.Config){
		"feed":      func(c *config.Config) { c.Scanner.Feeds[0].Path += ".missing" },
		"discovery": func(c *config.Config) { c.Scanner.DiscoveryResults += ".missing" },
		"targets":   func(c *config.Config) { c.Scanner.TargetsFile += ".missing" },
		"software":  func(c *config.Config) { c.Scanner.SoftwareOverrides = "/nonexistent/software.ini" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			mutate(f.cfg)
			_, err := f.runAt(t, day(0))
			require.Error(t, err)
			assert.NoFileExists(t, f.cfg.Scanner.StateFile)
		})
	}
}

func TestRun_CorruptHistoryStartsOver(t *testing.T) {
	f := newFixture(t)
	write(t, f.cfg.Scanner.StateFile, "garbage")

	res, err := f.runAt(t, day(0))
	require.NoError(t, err)
	require.NoError(t, res.Err())

	snap, err := history.NewStore(f.cfg.Scanner.StateFile).Load()
	require.NoError(t, err)
	a, _ := snap.Get("a.example")
	assert.Equal(t, 1, a.TimesQueriedTotal)
}

func TestRun_ArtifactFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	blocked := filepath.Join(f.cfg.Scanner.Output.Directory, "servers.xml")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "x"), 0o755))

	res, err := f.runAt(t, day(0))
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)

	var se *StageError
	require.True(t, errors.As(res.Err(), &se))
	assert.Equal(t, StageExport, se.Stage)
	assert.Equal(t, blocked, se.Artifact)

	assert.FileExists(t, f.cfg.Scanner.StateFile)
	assert.FileExists(t, filepath.Join(f.cfg.Scanner.Output.Directory, "servers.html"))
	assert.FileExists(t, f.cfg.Scanner.Output.MetricsTextfile)
}

func TestRun_HistorySaveFailureStillRenders(t *testing.T) {
	f := newFixture(t)
	f.cfg.Scanner.StateFile = filepath.Join(f.dir, "no-such-dir", "servers.dump")

	res, err := f.runAt(t, day(0))
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, StageHistory, res.Failures[0].Stage)
	assert.FileExists(t, filepath.Join(f.cfg.Scanner.Output.Directory, "servers.html"))
}

func TestRun_RenderOnly(t *testing.T) {
	f := newFixture(t)

	r := New(f.cfg)
	r.RenderOnly = true
	r.now = fixedClock(day(0))
	_, err := r.Run(context.Background())
	require.Error(t, err, "render-only needs a stored snapshot")

	_, err = f.runAt(t, day(0))
	require.NoError(t, err)
	before, err := os.ReadFile(f.cfg.Scanner.StateFile)
	require.NoError(t, err)

	// Inputs are not read in render-only mode.
	require.NoError(t, os.Remove(f.cfg.Scanner.DiscoveryResults))
	r.now = fixedClock(day(1))
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, 3, res.Endpoints)

	after, err := os.ReadFile(f.cfg.Scanner.StateFile)
	require.NoError(t, err)
	assert.Equal(t, before, after, "render-only leaves history untouched")
}

func TestRun_HTMLDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Scanner.Output.HTML.Enabled = false

	res, err := f.runAt(t, day(0))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Views)
	assert.NoFileExists(t, filepath.Join(f.cfg.Scanner.Output.Directory, "servers.html"))
	assert.FileExists(t, filepath.Join(f.cfg.Scanner.Output.Directory, "servers.xml"))
}
