// Package spreadsheet reads OpenDocument spreadsheets (.ods) into named sheets of string rows.
//
// Only the cell text is extracted. Paragraphs inside a cell are joined with a newline,
// which is how multi-valued cells (for example several URLs sharing the same metadata)
// are represented in the harvested source documents.
//
// Repeated rows and columns are expanded up to MaxRepeat, and trailing empty
// rows and cells are dropped, so sheets padded to the full spreadsheet grid do
// not allocate millions of empty cells.
package spreadsheet
