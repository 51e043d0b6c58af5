// Package model defines the data structures shared by the ytscan packages.
//
// This package contains the following main types:
//   - VideoRecord and ChannelRecord: partial entities extracted from a page
//   - AggregateStats: totals over a channel's videos
//   - ScanReport: the result of scanning one target
//   - Page: a fetched page with its content hash
//
// The extractor, pipeline, report writers and database share these types.
// They serialize to JSON for report output and database storage.
package model
