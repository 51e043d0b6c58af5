// Package main provides the entry point for the ytscan CLI.
//
// ytscan collects public statistics of YouTube channels and videos from
// the ytInitialData document embedded in their pages.
//
// Usage:
//
//	ytscan scan <channel-or-video-url>
//	ytscan scan --list <file>
//	ytscan compare <url>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
