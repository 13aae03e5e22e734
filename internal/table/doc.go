// Package table reads and writes the tabular files tridup works on.
//
// Supported formats are CSV (.csv), tab-separated text (.tsv, .txt) and
// Excel workbooks (.xlsx). A table has one header row at a configurable
// position; rows above it (titles, notes) are skipped, as are blank rows
// below it.
//
// Bind maps the configured identifier and sum columns onto a header and
// turns table rows into ir.Records for the engine. Output and Rejects
// render engine results back into tables with the input's header.
package table
