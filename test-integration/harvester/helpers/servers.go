// Package helpers provides fixtures for the harvester integration tests.
package helpers

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/stacklok/csw-harvester/internal/spreadsheet"
)

const capabilitiesDoc = `<?xml version="1.0" encoding="UTF-8"?>
<csw:Capabilities xmlns:csw="http://www.opengis.net/cat/csw/2.0.2" version="2.0.2"/>`

const exceptionDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows" version="1.2.0">
  <ows:Exception exceptionCode="NoApplicableCode">
    <ows:ExceptionText>Catalogue temporarily disabled</ows:ExceptionText>
  </ows:Exception>
</ows:ExceptionReport>`

// CatalogueServer serves the API spreadsheet and emulates CSW endpoints.
//
//   - /apis.ods returns the spreadsheet, or 404 when none is set
//   - /live/... answers GetCapabilities with a capabilities document
//   - /exception/... answers with an OWS exception report
//   - anything else returns 500
type CatalogueServer struct {
	*httptest.Server

	mu          sync.Mutex
	spreadsheet []byte
	probes      map[string]int
}

// NewCatalogueServer starts a catalogue server
func NewCatalogueServer() *CatalogueServer {
	s := &CatalogueServer{probes: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/apis.ods", s.serveSpreadsheet)
	mux.HandleFunc("/live/", s.countProbe(func(w http.ResponseWriter) {
		writeXML(w, capabilitiesDoc)
	}))
	mux.HandleFunc("/exception/", s.countProbe(func(w http.ResponseWriter) {
		writeXML(w, exceptionDoc)
	}))
	mux.HandleFunc("/", s.countProbe(func(w http.ResponseWriter) {
		http.Error(w, "catalogue unavailable", http.StatusInternalServerError)
	}))
	s.Server = httptest.NewServer(mux)
	return s
}

// SetSpreadsheet sets the published spreadsheet
func (s *CatalogueServer) SetSpreadsheet(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spreadsheet = data
}

// SpreadsheetURL returns the download URL of the spreadsheet
func (s *CatalogueServer) SpreadsheetURL() string {
	return s.URL + "/apis.ods"
}

// ProbeCount returns how many GetCapabilities requests reached path
func (s *CatalogueServer) ProbeCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probes[path]
}

func (s *CatalogueServer) serveSpreadsheet(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	data := s.spreadsheet
	s.mu.Unlock()

	if data == nil {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", spreadsheet.MimeType)
	_, _ = w.Write(data)
}

func (s *CatalogueServer) countProbe(respond func(http.ResponseWriter)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("request") == "GetCapabilities" {
			s.mu.Lock()
			s.probes[r.URL.Path]++
			s.mu.Unlock()
		}
		respond(w)
	}
}

func writeXML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(doc))
}
