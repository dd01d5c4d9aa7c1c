package registry

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/gofrs/flock"
	"github.com/jacoelho/xsd"
)

const (
	// EntryTag is the element name of a registry entry
	EntryTag = "csw"

	// NameAttr and URLAttr are the attributes identifying an entry
	NameAttr = "name"
	URLAttr  = "url"

	// LockSuffix is appended to the registry path to form the lock file path
	LockSuffix = ".lock"

	// IndentSpaces is the indentation used when the registry is rewritten
	IndentSpaces = 2

	lockRetryDelay = 50 * time.Millisecond
)

// Entry is one connection in the registry
type Entry struct {
	Name string
	URL  string
}

// Store reads and appends to a schema-validated registry file
type Store struct {
	xmlPath string
	xsdPath string
	schema  *xsd.Schema
	lock    *flock.Flock
}

// Open compiles the schema and validates the current registry file against it
func Open(ctx context.Context, xmlPath, xsdPath string) (*Store, error) {
	schema, err := xsd.LoadFile(xsdPath)
	if err != nil {
		return nil, newSchemaValidationError(xsdPath, fmt.Errorf("failed to load schema: %w", err))
	}

	s := &Store{
		xmlPath: xmlPath,
		xsdPath: xsdPath,
		schema:  schema,
		lock:    flock.New(xmlPath + LockSuffix),
	}
	if err := s.Validate(ctx); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Opened registry", "xml", xmlPath, "xsd", xsdPath)
	return s, nil
}

// Path returns the registry file path
func (s *Store) Path() string {
	return s.xmlPath
}

// Validate re-reads the registry file and validates it against the schema
func (s *Store) Validate(_ context.Context) error {
	//nolint:gosec // Registry path comes from user configuration
	data, err := os.ReadFile(s.xmlPath)
	if err != nil {
		return fmt.Errorf("failed to read registry %s: %w", s.xmlPath, err)
	}
	return s.validateBytes(s.xmlPath, data)
}

// Entries returns every entry of the registry in document order
func (s *Store) Entries(_ context.Context) ([]Entry, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	elements := doc.Root().SelectElements(EntryTag)
	entries := make([]Entry, 0, len(elements))
	for _, el := range elements {
		entries = append(entries, Entry{
			Name: el.SelectAttrValue(NameAttr, ""),
			URL:  el.SelectAttrValue(URLAttr, ""),
		})
	}
	return entries, nil
}

// Exists reports whether an entry with exactly this name and URL is present.
// The file is re-read on every call.
func (s *Store) Exists(_ context.Context, name, url string) (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, err
	}
	return contains(doc.Root(), name, url), nil
}

// Append adds an entry unless it already exists. It returns true when the file changed.
// The persisted file is left untouched on any error.
func (s *Store) Append(ctx context.Context, name, url string) (bool, error) {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return false, fmt.Errorf("failed to lock registry %s: %w", s.xmlPath, err)
	}
	if !locked {
		return false, fmt.Errorf("failed to lock registry %s", s.xmlPath)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.WarnContext(ctx, "Failed to unlock registry", "path", s.xmlPath, "error", err)
		}
	}()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	root := doc.Root()
	if contains(root, name, url) {
		return false, nil
	}

	entry := etree.NewElement(EntryTag)
	entry.CreateAttr(NameAttr, name)
	entry.CreateAttr(URLAttr, url)

	if err := s.validateFragment(root, entry); err != nil {
		return false, err
	}

	root.AddChild(entry)
	doc.Indent(IndentSpaces)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return false, fmt.Errorf("failed to serialize registry: %w", err)
	}
	if err := s.validateBytes(s.xmlPath, buf.Bytes()); err != nil {
		return false, err
	}
	if err := s.replaceFile(buf.Bytes()); err != nil {
		return false, err
	}

	slog.DebugContext(ctx, "Appended registry entry", "path", s.xmlPath, "name", name, "url", url)
	return true, nil
}

// validateFragment validates a document made of a copy of the root, without children, holding only entry
func (s *Store) validateFragment(root, entry *etree.Element) error {
	fragment := etree.NewDocument()
	fragment.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	fragmentRoot := fragment.CreateElement(root.FullTag())
	for _, attr := range root.Attr {
		fragmentRoot.CreateAttr(attr.FullKey(), attr.Value)
	}
	fragmentRoot.AddChild(entry.Copy())

	data, err := fragment.WriteToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize entry: %w", err)
	}
	desc := fmt.Sprintf("entry name=%q url=%q", entry.SelectAttrValue(NameAttr, ""), entry.SelectAttrValue(URLAttr, ""))
	return s.validateBytes(desc, data)
}

func (s *Store) validateBytes(path string, data []byte) error {
	if err := s.schema.Validate(bytes.NewReader(data)); err != nil {
		return newSchemaValidationError(path, err)
	}
	return nil
}

func (s *Store) load() (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(s.xmlPath); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", s.xmlPath, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("registry %s has no root element", s.xmlPath)
	}
	return doc, nil
}

// replaceFile writes data next to the registry and renames it over the original
func (s *Store) replaceFile(data []byte) error {
	mode := os.FileMode(0600)
	if info, err := os.Stat(s.xmlPath); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.xmlPath), filepath.Base(s.xmlPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary registry file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write temporary registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary registry file: %w", err)
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to set registry file mode: %w", err)
	}

	if err := os.Rename(tempPath, s.xmlPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace registry %s: %w", s.xmlPath, err)
	}
	return nil
}

func contains(root *etree.Element, name, url string) bool {
	for _, el := range root.SelectElements(EntryTag) {
		if el.SelectAttrValue(NameAttr, "") == name && el.SelectAttrValue(URLAttr, "") == url {
			return true
		}
	}
	return false
}
