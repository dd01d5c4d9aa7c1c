package helpers

import (
	"os"
	"path/filepath"

	"github.com/stacklok/csw-harvester/internal/spreadsheet"
)

// Header is the header row of the API spreadsheet
var Header = []string{
	"Provider country", "API provider", "Name/ID", "Description", "URL", "API type",
	"No. of APIs", "Themes", "Governmental level", "Country code", "Source",
}

// APIRow is one data row of the API spreadsheet
type APIRow struct {
	Country  string
	Provider string
	URLs     string
	Theme    string
	Level    string
}

func (r APIRow) cells() []string {
	return []string{r.Country, r.Provider, "", "", r.URLs, "CSW", "1", r.Theme, r.Level, r.Country, "integration"}
}

// BuildSpreadsheet builds an ODS document with a header row and rows
func BuildSpreadsheet(rows ...APIRow) ([]byte, error) {
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, Header)
	for _, r := range rows {
		cells = append(cells, r.cells())
	}
	return spreadsheet.NewTestDocumentBuilder().WithSheet("APIs", cells...).Build()
}

// RegistrySchema is a MetaSearch connection schema restricting URLs to http(s)
const RegistrySchema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" elementFormDefault="qualified">
  <xs:simpleType name="httpURL">
    <xs:restriction base="xs:string">
      <xs:pattern value="https?://.+"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:element name="qgsCSWConnections">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="csw" minOccurs="0" maxOccurs="unbounded">
          <xs:complexType>
            <xs:attribute name="name" type="xs:string" use="required"/>
            <xs:attribute name="url" type="httpURL" use="required"/>
          </xs:complexType>
        </xs:element>
      </xs:sequence>
      <xs:attribute name="version" type="xs:string"/>
    </xs:complexType>
  </xs:element>
</xs:schema>
`

// EmptyRegistry is a registry without entries
const EmptyRegistry = `<?xml version="1.0" encoding="UTF-8"?>
<qgsCSWConnections version="1.0"/>
`

// WriteRegistry writes the schema and registry files into dir and returns their paths
func WriteRegistry(dir, registryXML string) (xmlPath, xsdPath string, err error) {
	xmlPath = filepath.Join(dir, "connections.xml")
	xsdPath = filepath.Join(dir, "connections.xsd")
	if err := os.WriteFile(xsdPath, []byte(RegistrySchema), 0600); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(xmlPath, []byte(registryXML), 0600); err != nil {
		return "", "", err
	}
	return xmlPath, xsdPath, nil
}
