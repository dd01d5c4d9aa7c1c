package harvest

import (
	"strconv"
	"strings"

	"github.com/stacklok/csw-harvester/internal/validators"
)

// Candidate is one URL of a row, proposed for the registry
type Candidate struct {
	DisplayName string
	URL         string

	// Sequence is the 1-based position in a multi-URL cell, 0 for single-URL cells
	Sequence int
}

// Prefix returns "n. " for multi-URL candidates
func (c Candidate) Prefix() string {
	if c.Sequence == 0 {
		return ""
	}
	return strconv.Itoa(c.Sequence) + ". "
}

// Name is the registry entry name
func (c Candidate) Name() string {
	return c.Prefix() + c.DisplayName
}

// Expand returns one candidate per URL in the row's URL cell.
// Rows with an empty URL cell have no candidates.
func Expand(row SourceRow) []Candidate {
	name := row.DisplayName()
	if !validators.IsMultiURL(row.URLField) {
		url := strings.TrimSpace(row.URLField)
		if url == "" {
			return nil
		}
		return []Candidate{{DisplayName: name, URL: url}}
	}

	urls := validators.SplitMultiURL(row.URLField)
	candidates := make([]Candidate, 0, len(urls))
	for i, u := range urls {
		candidates = append(candidates, Candidate{DisplayName: name, URL: u, Sequence: i + 1})
	}
	return candidates
}
