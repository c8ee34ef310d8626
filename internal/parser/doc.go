// Package parser extracts raw tables from the supported upload formats:
// delimited text, Excel workbooks, HTML documents, and PDFs. Parsers make
// no assumption about header rows; schema recovery happens afterwards in
// the normalizer.
package parser
