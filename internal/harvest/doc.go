// Package harvest turns spreadsheet rows into CSW registry entries.
//
// Each row goes through four steps: the category filter, expansion of the URL
// cell into one candidate per URL, classification (URL syntax and, when a
// liveness selection is configured, a CSW handshake) and routing. Routing
// either prints the candidate or appends it to the registry, skipping entries
// that are already present.
//
// Per-row problems are logged and counted. Only context cancellation or a
// failure to write to the output stream aborts a run.
package harvest
