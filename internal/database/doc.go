// Package database keeps the scan history of ytscan in SQLite
// (modernc.org/sqlite, no cgo).
//
// Two tables are maintained:
//   - scan_reports: every scan report as JSON, with a numeric stats summary
//     used by the compare command
//   - pages: the last fetch of every page URL with its status, title and
//     SHA3-256 content hash, so unchanged pages can be recognized
package database
