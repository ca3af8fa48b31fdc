// Package run drives one scan-and-report cycle.
//
// A run reads the server list feeds and the discoverer's output, reconciles
// them into the target set, folds the scan into the stored history and then
// publishes every configured artifact: the HTML views, the export, the
// metrics textfile and the SQLite mirror.
//
// Errors fall in two classes. Configuration and input errors abort the run
// before anything is written and are returned from Run. Failures while
// saving history or publishing an artifact are collected in Result.Failures;
// the remaining artifacts are still attempted.
package run
