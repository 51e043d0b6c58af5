// Package youtube fetches YouTube pages and pulls the ytInitialData
// document out of them.
//
// URL helpers classify and normalize the targets a user passes on the
// command line. Client performs the HTTP requests with browser-like headers,
// an optional SOCKS5 proxy and per-site cookies. ExtractInitialData locates
// the JSON object assigned to ytInitialData inside the page scripts and
// decodes it into a tree.Node for the extract package.
package youtube
