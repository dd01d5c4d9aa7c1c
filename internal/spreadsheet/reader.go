package spreadsheet

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	// MimeType is the media type of OpenDocument spreadsheets
	MimeType = "application/vnd.oasis.opendocument.spreadsheet"

	// Extension is the file extension of OpenDocument spreadsheets
	Extension = ".ods"

	// ContentFileName is the zip member holding the spreadsheet body
	ContentFileName = "content.xml"

	// HeaderRows is the number of leading rows reserved for column titles
	HeaderRows = 1

	// MaxRepeat caps the expansion of repeated rows and cells
	MaxRepeat = 1024

	// maxContentSize bounds content.xml decompression
	maxContentSize = 256 * 1024 * 1024
)

const (
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
)

// ParseError is returned when a document is not a well-formed OpenDocument spreadsheet
type ParseError struct {
	Reason string
	Err    error
}

// Error returns the error message
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse spreadsheet: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to parse spreadsheet: %s", e.Reason)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// SheetNotFoundError is returned when the designated sheet is absent
type SheetNotFoundError struct {
	Name      string
	Available []string
}

// Error returns the error message
func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Sheet is a single table of the workbook
type Sheet struct {
	Name string
	Rows [][]string
}

// DataRows returns the rows following the header rows
func (s *Sheet) DataRows() [][]string {
	if len(s.Rows) <= HeaderRows {
		return nil
	}
	return s.Rows[HeaderRows:]
}

// Workbook is a parsed spreadsheet document
type Workbook struct {
	sheets []*Sheet
}

// SheetNames returns the sheet names in document order
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.sheets))
	for _, s := range w.sheets {
		names = append(names, s.Name)
	}
	return names
}

// Sheet returns the sheet with the given name. An empty name selects the first sheet.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	if name == "" {
		if len(w.sheets) == 0 {
			return nil, &SheetNotFoundError{Name: name}
		}
		return w.sheets[0], nil
	}
	for _, s := range w.sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, &SheetNotFoundError{Name: name, Available: w.SheetNames()}
}

// ParseFile reads and parses a spreadsheet from disk
func ParseFile(path string) (*Workbook, error) {
	//nolint:gosec // Path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses an OpenDocument spreadsheet held in memory
func Parse(data []byte) (*Workbook, error) {
	content, err := readContent(data)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, &ParseError{Reason: "malformed " + ContentFileName, Err: err}
	}

	root := doc.Root()
	if root == nil || !isElement(root, nsOffice, "document-content") {
		return nil, &ParseError{Reason: "missing office:document-content root"}
	}

	body := childElement(root, nsOffice, "body")
	if body == nil {
		return nil, &ParseError{Reason: "missing office:body"}
	}
	spreadsheet := childElement(body, nsOffice, "spreadsheet")
	if spreadsheet == nil {
		return nil, &ParseError{Reason: "document is not a spreadsheet"}
	}

	wb := &Workbook{}
	for _, table := range spreadsheet.ChildElements() {
		if !isElement(table, nsTable, "table") {
			continue
		}
		wb.sheets = append(wb.sheets, &Sheet{
			Name: attrValue(table, nsTable, "name"),
			Rows: readRows(table),
		})
	}

	return wb, nil
}

func readContent(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Reason: "not a zip container", Err: err}
	}

	for _, f := range zr.File {
		if f.Name != ContentFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &ParseError{Reason: "cannot open " + ContentFileName, Err: err}
		}
		defer func() {
			_ = rc.Close()
		}()

		content, err := io.ReadAll(io.LimitReader(rc, maxContentSize+1))
		if err != nil {
			return nil, &ParseError{Reason: "cannot read " + ContentFileName, Err: err}
		}
		if len(content) > maxContentSize {
			return nil, &ParseError{Reason: ContentFileName + " exceeds maximum size"}
		}
		return content, nil
	}

	return nil, &ParseError{Reason: "missing " + ContentFileName, Err: errors.New("not an OpenDocument package")}
}

// rowCollector accumulates rows, deferring empty ones until a non-empty row follows
type rowCollector struct {
	rows         [][]string
	pendingEmpty int
}

func (c *rowCollector) add(row []string, repeat int) {
	if len(row) == 0 {
		c.pendingEmpty += repeat
		return
	}
	for i := 0; i < min(c.pendingEmpty, MaxRepeat); i++ {
		c.rows = append(c.rows, []string{})
	}
	c.pendingEmpty = 0
	for i := 0; i < min(repeat, MaxRepeat); i++ {
		c.rows = append(c.rows, row)
	}
}

func readRows(table *etree.Element) [][]string {
	c := &rowCollector{}
	collectRows(table, c)
	return c.rows
}

func collectRows(parent *etree.Element, c *rowCollector) {
	for _, el := range parent.ChildElements() {
		if el.NamespaceURI() != nsTable {
			continue
		}
		switch el.Tag {
		case "table-row":
			c.add(readCells(el), repeatCount(el, "number-rows-repeated"))
		case "table-header-rows", "table-row-group", "table-rows":
			collectRows(el, c)
		}
	}
}

func readCells(row *etree.Element) []string {
	var cells []string
	pendingEmpty := 0
	for _, el := range row.ChildElements() {
		if !isElement(el, nsTable, "table-cell") && !isElement(el, nsTable, "covered-table-cell") {
			continue
		}
		repeat := repeatCount(el, "number-columns-repeated")
		value := cellText(el)
		if value == "" {
			pendingEmpty += repeat
			continue
		}
		for i := 0; i < min(pendingEmpty, MaxRepeat); i++ {
			cells = append(cells, "")
		}
		pendingEmpty = 0
		for i := 0; i < min(repeat, MaxRepeat); i++ {
			cells = append(cells, value)
		}
	}
	return cells
}

func cellText(cell *etree.Element) string {
	var paragraphs []string
	for _, el := range cell.ChildElements() {
		if isElement(el, nsText, "p") || isElement(el, nsText, "h") {
			var b strings.Builder
			writeInline(&b, el)
			paragraphs = append(paragraphs, b.String())
		}
	}
	if len(paragraphs) == 0 {
		return attrValue(cell, nsOffice, "value")
	}
	return strings.Join(paragraphs, "\n")
}

func writeInline(b *strings.Builder, el *etree.Element) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			if t.NamespaceURI() != nsText {
				writeInline(b, t)
				continue
			}
			switch t.Tag {
			case "s":
				n := repeatCountNS(t, nsText, "c")
				b.WriteString(strings.Repeat(" ", min(n, MaxRepeat)))
			case "tab":
				b.WriteString("\t")
			case "line-break":
				b.WriteString("\n")
			case "note", "annotation":
				// comments are not cell content
			default:
				writeInline(b, t)
			}
		}
	}
}

func repeatCount(el *etree.Element, key string) int {
	return repeatCountNS(el, nsTable, key)
}

func repeatCountNS(el *etree.Element, ns, key string) int {
	v := attrValue(el, ns, key)
	if v == "" {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func isElement(el *etree.Element, ns, tag string) bool {
	return el.Tag == tag && el.NamespaceURI() == ns
}

func childElement(parent *etree.Element, ns, tag string) *etree.Element {
	for _, el := range parent.ChildElements() {
		if isElement(el, ns, tag) {
			return el
		}
	}
	return nil
}

func attrValue(el *etree.Element, ns, key string) string {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key == key && a.NamespaceURI() == ns {
			return a.Value
		}
	}
	return ""
}
