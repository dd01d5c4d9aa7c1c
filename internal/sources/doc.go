// Package sources provides interfaces and implementations for acquiring the
// spreadsheet that lists candidate catalogue services.
//
// The package defines the SourceHandler interface which abstracts the
// process of validating a source configuration and fetching the raw
// spreadsheet document from either a remote HTTP(S) location or the local
// filesystem.
//
// Architecture:
//   - SourceHandler: Interface for validating and fetching source documents
//   - SourceHandlerFactory: Creates the handler matching the configured source type
//   - Document: Raw spreadsheet bytes with their location and SHA256 hash
//
// Current implementations:
//   - remoteSourceHandler: Downloads the spreadsheet with a browser-like User-Agent,
//     retries transport failures with exponential backoff and checks the
//     declared content type
//   - fileSourceHandler: Reads the spreadsheet from the local filesystem after
//     checking that it exists and carries the .ods extension
package sources
