package validators

// URLSet is an append-only, insertion ordered set of URLs.
// The zero value is ready to use.
type URLSet struct {
	index  map[string]struct{}
	values []string
}

// NewURLSet creates an empty URLSet
func NewURLSet() *URLSet {
	return &URLSet{}
}

// Add inserts url and reports whether it was not already present
func (s *URLSet) Add(url string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[url]; ok {
		return false
	}
	s.index[url] = struct{}{}
	s.values = append(s.values, url)
	return true
}

// Has reports whether url is in the set
func (s *URLSet) Has(url string) bool {
	_, ok := s.index[url]
	return ok
}

// Len returns the number of URLs in the set
func (s *URLSet) Len() int {
	return len(s.values)
}

// Values returns a copy of the URLs in insertion order
func (s *URLSet) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}
