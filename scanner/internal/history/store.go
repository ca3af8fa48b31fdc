package history

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/xmppscan/xmppscan/pkg/types"
	"github.com/xmppscan/xmppscan/scanner/internal/fileutil"
)

// formatVersion is bumped whenever the snapshot layout changes incompatibly.
const formatVersion = 1

// ErrCorrupt wraps every failure to decode an existing snapshot file.
var ErrCorrupt = errors.New("history: corrupt snapshot")

// Store persists snapshots to a single file.
type Store struct {
	path string
	enc  cbor.EncMode
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		// The options are a fixed, valid preset.
		panic(fmt.Sprintf("history: cbor enc mode: %v", err))
	}
	return &Store{path: path, enc: enc}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. It returns nil, nil when the file does not exist.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %q: %w", s.path, err)
	}
	return decode(data)
}

// LoadOrFirstRun is Load with every failure mapped to "no history".
func (s *Store) LoadOrFirstRun() *Snapshot {
	snap, err := s.Load()
	if err != nil {
		slog.Warn("history: snapshot unusable, discarding history", "path", s.path, "err", err)
		return nil
	}
	if snap == nil {
		slog.Info("history: snapshot missing, treating as first run", "path", s.path)
		return nil
	}
	slog.Debug("history: snapshot loaded", "path", s.path,
		"endpoints", snap.Len(), "saved_at", snap.SavedAt)
	return snap
}

// Save replaces the snapshot file with records.
func (s *Store) Save(records []*types.EndpointRecord, savedAt time.Time) error {
	data, err := s.encode(records, savedAt)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("history: save: %w", err)
	}
	return nil
}

func (s *Store) encode(records []*types.EndpointRecord, savedAt time.Time) ([]byte, error) {
	snap := NewSnapshot(append([]*types.EndpointRecord(nil), records...), savedAt)
	w := wireSnapshot{
		Version:   formatVersion,
		SavedAt:   savedAt.UnixNano(),
		Endpoints: make([]wireEndpoint, 0, snap.Len()),
	}
	for _, r := range snap.Endpoints {
		w.Endpoints = append(w.Endpoints, toWire(r))
	}
	data, err := s.enc.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("history: encode: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if w.Version != formatVersion {
		return nil, fmt.Errorf("%w: unknown format version %d", ErrCorrupt, w.Version)
	}
	records := make([]*types.EndpointRecord, 0, len(w.Endpoints))
	seen := make(map[string]struct{}, len(w.Endpoints))
	for i, we := range w.Endpoints {
		r, err := fromWire(we)
		if err != nil {
			return nil, fmt.Errorf("%w: endpoint %d: %v", ErrCorrupt, i, err)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate endpoint %q", ErrCorrupt, r.ID)
		}
		seen[r.ID] = struct{}{}
		records = append(records, r)
	}
	return NewSnapshot(records, time.Unix(0, w.SavedAt).UTC()), nil
}

// --- wire layout ---

type wireSnapshot struct {
	Version   int            `cbor:"version"`
	SavedAt   int64          `cbor:"saved_at"`
	Endpoints []wireEndpoint `cbor:"endpoints"`
}

type wireEndpoint struct {
	ID                  string            `cbor:"id"`
	Available           bool              `cbor:"available"`
	AvailableServices   []wireService     `cbor:"available_services,omitempty"`
	UnavailableServices []wireService     `cbor:"unavailable_services,omitempty"`
	Metadata            map[string]string `cbor:"metadata,omitempty"`
	Implementation      *wireImpl         `cbor:"implementation,omitempty"`
	IPv6Ready           *bool             `cbor:"ipv6_ready,omitempty"`
	UptimeNanos         *int64            `cbor:"uptime,omitempty"`
	OfflineSince        *int64            `cbor:"offline_since,omitempty"`
	History             []wireSample      `cbor:"history"`
	TimesOnline         int               `cbor:"times_online"`
	TimesTotal          int               `cbor:"times_total"`
}

type wireService struct {
	Category   string          `cbor:"category"`
	Type       string          `cbor:"type"`
	Components []wireComponent `cbor:"components"`
}

type wireComponent struct {
	ID        string `cbor:"id"`
	Node      string `cbor:"node,omitempty"`
	Available bool   `cbor:"available"`
}

type wireImpl struct {
	Name    string `cbor:"name"`
	Version string `cbor:"version,omitempty"`
}

type wireSample struct {
	At     int64 `cbor:"at"`
	Online bool  `cbor:"online"`
}

func toWire(r *types.EndpointRecord) wireEndpoint {
	w := wireEndpoint{
		ID:                  r.ID,
		Available:           r.Available,
		AvailableServices:   servicesToWire(r.AvailableServices),
		UnavailableServices: servicesToWire(r.UnavailableServices),
		Metadata:            r.Metadata,
		IPv6Ready:           r.IPv6Ready,
		History:             make([]wireSample, 0, r.History.Len()),
		TimesOnline:         r.TimesQueriedOnline,
		TimesTotal:          r.TimesQueriedTotal,
	}
	if r.Implementation != nil {
		w.Implementation = &wireImpl{Name: r.Implementation.Name, Version: r.Implementation.Version}
	}
	if r.Uptime != nil {
		n := int64(*r.Uptime)
		w.UptimeNanos = &n
	}
	if r.OfflineSince != nil {
		n := r.OfflineSince.UnixNano()
		w.OfflineSince = &n
	}
	for _, smp := range r.History {
		w.History = append(w.History, wireSample{At: smp.At.UnixNano(), Online: smp.Online})
	}
	return w
}

func servicesToWire(s types.Services) []wireService {
	kinds := s.Kinds()
	if len(kinds) == 0 {
		return nil
	}
	out := make([]wireService, 0, len(kinds))
	for _, k := range kinds {
		ws := wireService{Category: k.Category, Type: k.Type}
		for _, c := range s.Sorted(k) {
			ws.Components = append(ws.Components, wireComponent{ID: c.ID, Node: c.Node, Available: c.Available})
		}
		out = append(out, ws)
	}
	return out
}

func fromWire(w wireEndpoint) (*types.EndpointRecord, error) {
	if w.ID == "" {
		return nil, errors.New("empty id")
	}
	r := &types.EndpointRecord{
		ID:                  w.ID,
		Available:           w.Available,
		AvailableServices:   servicesFromWire(w.AvailableServices),
		UnavailableServices: servicesFromWire(w.UnavailableServices),
		Metadata:            w.Metadata,
		IPv6Ready:           w.IPv6Ready,
		TimesQueriedOnline:  w.TimesOnline,
		TimesQueriedTotal:   w.TimesTotal,
	}
	if w.Implementation != nil {
		r.Implementation = &types.Implementation{Name: w.Implementation.Name, Version: w.Implementation.Version}
	}
	if w.UptimeNanos != nil {
		d := time.Duration(*w.UptimeNanos)
		r.Uptime = &d
	}
	if w.OfflineSince != nil {
		t := time.Unix(0, *w.OfflineSince).UTC()
		r.OfflineSince = &t
	}
	r.History = make(types.Series, 0, len(w.History))
	for i, smp := range w.History {
		at := time.Unix(0, smp.At).UTC()
		if i > 0 && !r.History[i-1].At.Before(at) {
			return nil, fmt.Errorf("%s: history out of order", w.ID)
		}
		r.History = append(r.History, types.Sample{At: at, Online: smp.Online})
	}
	if r.TimesQueriedTotal != r.History.Len() || r.TimesQueriedOnline != r.History.CountOnline() {
		return nil, fmt.Errorf("%s: counters (%d,%d) disagree with history",
			w.ID, r.TimesQueriedOnline, r.TimesQueriedTotal)
	}
	return r, nil
}

func servicesFromWire(ws []wireService) types.Services {
	s := types.Services{}
	for _, svc := range ws {
		kind := types.ServiceKind{Category: svc.Category, Type: svc.Type}
		for _, c := range svc.Components {
			s.Add(kind, types.Component{ID: c.ID, Node: c.Node, Available: c.Available})
		}
	}
	return s
}
