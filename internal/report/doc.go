// Package report renders the active dataset and its derived analytics
// into downloadable artifacts: an Excel workbook, a standalone HTML
// report, and a plain CSV of the data. Emitters write to an io.Writer
// so handlers can stream straight into the response.
package report
