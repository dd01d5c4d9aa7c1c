package sources

import (
	"fmt"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/httpclient"
)

// defaultSourceHandlerFactory is the default implementation of SourceHandlerFactory
type defaultSourceHandlerFactory struct {
	httpClient httpclient.Client
}

var _ SourceHandlerFactory = (*defaultSourceHandlerFactory)(nil)

// NewSourceHandlerFactory creates a new source handler factory.
// A nil client selects a default HTTP client.
func NewSourceHandlerFactory(httpClient httpclient.Client) SourceHandlerFactory {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultClient(0)
	}
	return &defaultSourceHandlerFactory{httpClient: httpClient}
}

// CreateHandler creates a source handler for the given source type
func (f *defaultSourceHandlerFactory) CreateHandler(sourceType string) (SourceHandler, error) {
	switch sourceType {
	case config.SourceTypeRemote:
		return NewRemoteSourceHandler(f.httpClient), nil
	case config.SourceTypeFile:
		return NewFileSourceHandler(), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
