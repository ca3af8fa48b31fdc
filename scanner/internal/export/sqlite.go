package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// SQLiteSink mirrors the full record set into a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("export: open sqlite %q: %w", path, err)
	}
	_, _ = db.Exec("PRAGMA journal_mode=WAL;")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL;")

	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error { return s.db.Close() }

func (s *SQLiteSink) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS servers (
  jid TEXT PRIMARY KEY,
  available INTEGER NOT NULL,
  offline_since TEXT,
  times_online INTEGER NOT NULL,
  times_queried INTEGER NOT NULL,
  implementation TEXT NOT NULL DEFAULT '',
  version TEXT NOT NULL DEFAULT '',
  ipv6_ready INTEGER,
  description TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS services (
  jid TEXT NOT NULL REFERENCES servers(jid) ON DELETE CASCADE,
  category TEXT NOT NULL,
  type TEXT NOT NULL,
  component TEXT NOT NULL,
  node TEXT NOT NULL DEFAULT '',
  available INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS services_kind ON services(category, type);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("export: migrate sqlite: %w", err)
	}
	return nil
}

// Replace rewrites both tables with records in one transaction.
func (s *SQLiteSink) Replace(ctx context.Context, records []*types.EndpointRecord, now time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM services`); err != nil {
		return fmt.Errorf("export: clear services: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM servers`); err != nil {
		return fmt.Errorf("export: clear servers: %w", err)
	}

	srv, err := tx.PrepareContext(ctx, `INSERT INTO servers
  (jid, available, offline_since, times_online, times_queried, implementation, version, ipv6_ready, description, updated_at)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("export: prepare servers: %w", err)
	}
	defer srv.Close()
	svc, err := tx.PrepareContext(ctx, `INSERT INTO services
  (jid, category, type, component, node, available) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("export: prepare services: %w", err)
	}
	defer svc.Close()

	stamp := now.UTC().Format(time.RFC3339)
	for _, r := range records {
		var offline, ipv6 any
		if r.OfflineSince != nil {
			offline = r.OfflineSince.UTC().Format(time.RFC3339)
		}
		if r.IPv6Ready != nil {
			ipv6 = boolInt(*r.IPv6Ready)
		}
		var implName, implVersion string
		if r.Implementation != nil {
			implName, implVersion = r.Implementation.Name, r.Implementation.Version
		}
		if _, err = srv.ExecContext(ctx, r.ID, boolInt(r.Available), offline,
			r.TimesQueriedOnline, r.TimesQueriedTotal, implName, implVersion, ipv6,
			r.Meta(types.FieldDescription), stamp); err != nil {
			return fmt.Errorf("export: insert server %q: %w", r.ID, err)
		}
		for _, bucket := range []types.Services{r.AvailableServices, r.UnavailableServices} {
			for _, kind := range bucket.Kinds() {
				for _, c := range bucket.Sorted(kind) {
					if _, err = svc.ExecContext(ctx, r.ID, kind.Category, kind.Type, c.ID, c.Node, boolInt(c.Available)); err != nil {
						return fmt.Errorf("export: insert service %q/%s: %w", r.ID, kind, err)
					}
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
