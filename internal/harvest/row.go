package harvest

import (
	"strings"

	"github.com/stacklok/csw-harvester/internal/config"
)

// RowWidth is the number of columns of a source row
const RowWidth = 11

// SourceRow is one data row of the public API spreadsheet
type SourceRow struct {
	ProviderCountry   string
	APIProvider       string
	NameID            string
	Description       string
	URLField          string
	APIType           string
	APICount          string
	Themes            string
	GovernmentalLevel string
	CountryCode       string
	Source            string
}

// NewSourceRow maps spreadsheet cells to fields in column order.
// Missing cells are empty and extra cells are ignored.
func NewSourceRow(cells []string) SourceRow {
	padded := make([]string, RowWidth)
	copy(padded, cells)
	return SourceRow{
		ProviderCountry:   padded[0],
		APIProvider:       padded[1],
		NameID:            padded[2],
		Description:       padded[3],
		URLField:          padded[4],
		APIType:           padded[5],
		APICount:          padded[6],
		Themes:            padded[7],
		GovernmentalLevel: padded[8],
		CountryCode:       padded[9],
		Source:            padded[10],
	}
}

// NewSourceRows maps every row of a sheet
func NewSourceRows(rows [][]string) []SourceRow {
	out := make([]SourceRow, 0, len(rows))
	for _, cells := range rows {
		out = append(out, NewSourceRow(cells))
	}
	return out
}

// FilterValue returns the value compared against the category filter
func (r SourceRow) FilterValue(field string) string {
	if field == config.FilterFieldGovernmentalLevel {
		return r.GovernmentalLevel
	}
	return r.Themes
}

// DisplayName is the entry name without any multi-URL prefix
func (r SourceRow) DisplayName() string {
	return r.ProviderCountry + ", " + r.GovernmentalLevel + ", " + r.APIProvider
}

// Matches reports whether the row passes the category filter
func (r SourceRow) Matches(filter config.FilterConfig) bool {
	if filter.MatchesAll() {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.FilterValue(filter.Field)), filter.Level)
}
