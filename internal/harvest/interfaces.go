package harvest

import (
	"context"

	"github.com/stacklok/csw-harvester/internal/probe"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks -source=interfaces.go Registry,Prober

// Registry is the connection registry written in write mode
type Registry interface {
	// Exists reports whether an entry with this name and URL is present
	Exists(ctx context.Context, name, url string) (bool, error)

	// Append adds an entry and reports whether the registry changed
	Append(ctx context.Context, name, url string) (bool, error)
}

// Prober checks whether a URL hosts a live CSW endpoint
type Prober interface {
	Probe(ctx context.Context, url string) probe.Result
}
