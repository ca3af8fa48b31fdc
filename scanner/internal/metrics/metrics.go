// Package metrics writes a Prometheus textfile describing the latest run,
// for collection by node_exporter's textfile collector.
package metrics

import (
	"bytes"
	"fmt"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/xmppscan/xmppscan/pkg/types"
	"github.com/xmppscan/xmppscan/scanner/internal/fileutil"
)

// Metric names.
const (
	EndpointUp          = "xmppscan_endpoint_up"
	EndpointReliability = "xmppscan_endpoint_reliability_ratio"
	EndpointSamples     = "xmppscan_endpoint_samples_total"
	Endpoints           = "xmppscan_endpoints"
	LastRun             = "xmppscan_last_run_timestamp_seconds"
)

// Families builds the metric families for records, in a fixed order.
// records are expected sorted by ID.
func Families(records []*types.EndpointRecord, now time.Time) []*dto.MetricFamily {
	up := gaugeFamily(EndpointUp, "Whether the server answered the last scan.")
	rel := gaugeFamily(EndpointReliability, "Share of scans in the retention window the server was online.")
	samples := gaugeFamily(EndpointSamples, "Scans recorded in the retention window.")

	var online, offline int
	for _, r := range records {
		label := labels("endpoint", r.ID)
		v := 0.0
		if r.Available {
			v = 1
			online++
		} else {
			offline++
		}
		up.Metric = append(up.Metric, gauge(label, v))
		samples.Metric = append(samples.Metric, gauge(label, float64(r.TimesQueriedTotal)))
		if ratio, ok := r.Reliability(); ok {
			rel.Metric = append(rel.Metric, gauge(label, ratio))
		}
	}

	counts := gaugeFamily(Endpoints, "Servers by state in the last scan.")
	counts.Metric = []*dto.Metric{
		gauge(labels("state", "offline"), float64(offline)),
		gauge(labels("state", "online"), float64(online)),
	}

	last := gaugeFamily(LastRun, "Unix time of the last completed run.")
	last.Metric = []*dto.Metric{gauge(nil, float64(now.UnixNano())/1e9)}

	return []*dto.MetricFamily{up, rel, samples, counts, last}
}

// Encode renders families in the text exposition format.
func Encode(families []*dto.MetricFamily) ([]byte, error) {
	var buf bytes.Buffer
	for _, mf := range families {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// WriteTextfile replaces the textfile at path.
func WriteTextfile(path string, records []*types.EndpointRecord, now time.Time) error {
	data, err := Encode(Families(records, now))
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(lbls []*dto.LabelPair, v float64) *dto.Metric {
	return &dto.Metric{Label: lbls, Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func labels(name, value string) []*dto.LabelPair {
	return []*dto.LabelPair{{Name: proto.String(name), Value: proto.String(value)}}
}
