// Package config loads and watches the scanner configuration file
// (config.yaml).
//
// Top-level types:
//   - Config{Scanner, Log}: full tree parsed from YAML
//   - ScannerConfig: state_file, retention_days, targets_file, feeds [],
//     discovery_results, software_overrides, output, database
//   - Feed: id, path, format (xml|html|json)
//   - OutputConfig: directory, html, export, compress, metrics_textfile
//   - HTMLConfig / ExportConfig: each carries a required min_reliability
//     threshold when enabled
//
// Load(path) reads the YAML file, applies defaults (30 day retention, header
// every 10 rows, servers.dump state file, the standard column set), then
// validates required fields, enums and thresholds.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It is used by the scheduled mode of
// the scanner binary so a long-running process picks up new settings on its
// next run.
package config
