// Package integration provides end-to-end tests for the CSW harvester.
// The tests drive the harvest and validate commands against local HTTP servers
// that publish the API spreadsheet and emulate live and failing CSW endpoints.
package integration
