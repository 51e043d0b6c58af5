// Package stats turns the counts YouTube displays ("1,2 тыс. просмотров",
// "3.4M views") into numbers and totals them over a channel's videos.
package stats
