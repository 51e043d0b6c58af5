// Package extract recognizes channels and videos in the ytInitialData
// document of a YouTube page.
//
// The document layout changes without notice, so every entity is located
// by well-known key names with one or more fallbacks, using the search
// package. Extraction is best effort: missing data leaves fields absent and
// a page without any known container yields nil, never an error.
package extract
