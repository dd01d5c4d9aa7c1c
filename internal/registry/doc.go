// Package registry maintains the local CSW connection registry.
//
// The registry is an XML document whose root holds one <csw name=".." url=".."/>
// element per connection. The document must validate against its XSD at all
// times: every append is first validated in isolation, then as part of the
// full document, and only then written to disk through a temporary file and a
// rename. Writers hold an exclusive lock on a sibling ".lock" file for the whole
// read-check-write cycle.
package registry
