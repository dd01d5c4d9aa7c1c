package spreadsheet

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// TestDocumentBuilder provides a fluent interface for building minimal .ods documents in tests
type TestDocumentBuilder struct {
	sheets []Sheet
}

// NewTestDocumentBuilder creates a new, empty test document builder
func NewTestDocumentBuilder() *TestDocumentBuilder {
	return &TestDocumentBuilder{}
}

// WithSheet appends a sheet. Cells containing newlines are written as several paragraphs.
func (b *TestDocumentBuilder) WithSheet(name string, rows ...[]string) *TestDocumentBuilder {
	b.sheets = append(b.sheets, Sheet{Name: name, Rows: rows})
	return b
}

// BuildContent returns the content.xml body of the document
func (b *TestDocumentBuilder) BuildContent() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("office:document-content")
	root.CreateAttr("xmlns:office", nsOffice)
	root.CreateAttr("xmlns:table", nsTable)
	root.CreateAttr("xmlns:text", nsText)
	root.CreateAttr("office:version", "1.2")

	spreadsheet := root.CreateElement("office:body").CreateElement("office:spreadsheet")
	for _, sheet := range b.sheets {
		table := spreadsheet.CreateElement("table:table")
		table.CreateAttr("table:name", sheet.Name)
		for _, row := range sheet.Rows {
			tr := table.CreateElement("table:table-row")
			for _, value := range row {
				cell := tr.CreateElement("table:table-cell")
				if value == "" {
					continue
				}
				cell.CreateAttr("office:value-type", "string")
				for _, line := range strings.Split(value, "\n") {
					cell.CreateElement("text:p").SetText(line)
				}
			}
		}
		// spreadsheet applications pad the grid with a huge repeated empty row
		padding := table.CreateElement("table:table-row")
		padding.CreateAttr("table:number-rows-repeated", "1048000")
		padding.CreateElement("table:table-cell").CreateAttr("table:number-columns-repeated", "1024")
	}

	return doc.WriteToBytes()
}

// Build returns the zipped .ods document
func (b *TestDocumentBuilder) Build() ([]byte, error) {
	content, err := b.BuildContent()
	if err != nil {
		return nil, fmt.Errorf("failed to build content: %w", err)
	}
	return Package(content)
}

// Package wraps a content.xml body into an OpenDocument zip container
func Package(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// the mimetype member must come first and be stored uncompressed
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := mw.Write([]byte(MimeType)); err != nil {
		return nil, fmt.Errorf("failed to write mimetype entry: %w", err)
	}

	cw, err := zw.Create(ContentFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create content entry: %w", err)
	}
	if _, err := cw.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write content entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize document: %w", err)
	}
	return buf.Bytes(), nil
}
