// Package pipeline runs scans as a sequence of steps.
//
// A channel scan reads the channel page, lists the videos tab, opens the
// watch page of every listed video and totals the counts. A video scan reads
// one watch page. Each step receives the shared ScanReport and fills in its
// part; a Session shared by the steps of one scan fetches every URL once and
// hands fetched pages to an optional recorder.
//
// Fetches are spaced out by a Pacer: NoPacing, EveryN for a fixed pause
// after every n items, or RateLimit for a token bucket. BatchProcessor scans
// several targets with errgroup and an optional pacer between targets.
package pipeline
