package render

import (
	"fmt"
	"net/url"
	"time"

	"github.com/xmppscan/xmppscan/pkg/types"
)

const mapsURL = "https://maps.google.com/maps"

// formatUptime renders d as "H:MM:SS", prefixed by "N day(s), " when it
// spans at least a day.
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	days, rem := secs/86400, secs%86400
	hms := fmt.Sprintf("%d:%02d:%02d", rem/3600, rem%3600/60, rem%60)
	switch days {
	case 0:
		return hms
	case 1:
		return "1 day, " + hms
	default:
		return fmt.Sprintf("%d days, %s", days, hms)
	}
}

func formatOfflineSince(t time.Time) string {
	return "Offline since " + t.UTC().Format("02 Jan 2006 15:04") + " UTC"
}

func formatReliability(r *types.EndpointRecord) string {
	return fmt.Sprintf("%d%% (%d/%d)", r.Percent(), r.TimesQueriedOnline, r.TimesQueriedTotal)
}

// shrink cuts name to n runes, the last three being "...". n below 4
// disables it.
func shrink(name string, n int) string {
	runes := []rune(name)
	if n <= 3 || len(runes) <= n {
		return name
	}
	return string(runes[:n-3]) + "..."
}

type location struct {
	URL  string
	Text string
}

// locate builds the location line of the server tooltip. Coordinates give
// the most precise map link; city and country alone still link to a search.
func locate(r *types.EndpointRecord) *location {
	hasCoords := r.HasMeta(types.FieldLatitude) && r.HasMeta(types.FieldLongitude)
	hasCity := r.HasMeta(types.FieldCity) && r.HasMeta(types.FieldCountry)
	hasCountry := r.HasMeta(types.FieldCountry)

	var place string
	switch {
	case hasCity:
		place = r.Meta(types.FieldCity) + ", " + r.Meta(types.FieldCountry)
	case hasCountry:
		place = r.Meta(types.FieldCountry)
	}

	switch {
	case hasCoords:
		loc := &location{URL: mapLink(r.Meta(types.FieldLatitude), r.Meta(types.FieldLongitude), r.ID), Text: "Location"}
		if place != "" {
			loc.Text = "Location: " + place
		}
		return loc
	case hasCity:
		return &location{URL: mapLink(r.Meta(types.FieldCity), r.Meta(types.FieldCountry), r.ID), Text: "Location: " + place}
	case hasCountry:
		return &location{Text: "Location: " + place}
	}
	return nil
}

func mapLink(a, b, label string) string {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s, %s (%s)", a, b, label))
	q.Set("iwloc", "A")
	q.Set("hl", "en")
	return mapsURL + "?" + q.Encode()
}
