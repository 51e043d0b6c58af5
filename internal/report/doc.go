// Package report writes scan reports.
//
// SimpleWriter prints the console summary. TextWriter, CSVWriter,
// MarkdownWriter and JSONWriter produce the files saved after a scan;
// FileName names them. Counts are printed as found on the page, totals
// with thousands separators.
package report
