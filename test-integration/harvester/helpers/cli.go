package helpers

import (
	"bytes"
	"context"

	"github.com/stacklok/csw-harvester/cmd/csw-harvester/app"
)

// RunCLI executes the harvester with args and returns its standard output
func RunCLI(ctx context.Context, args ...string) (string, error) {
	cmd := app.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}
