package ports

import (
	"context"

	"github.com/awcullen/opcua/ua"
)

// UaClient is the subset of *client.Client (github.com/awcullen/opcua/client)
// used by the awcullen transport.
type UaClient interface {
	Read(ctx context.Context, request *ua.ReadRequest) (*ua.ReadResponse, error)
	Write(ctx context.Context, request *ua.WriteRequest) (*ua.WriteResponse, error)
	TranslateBrowsePathsToNodeIDs(ctx context.Context, request *ua.TranslateBrowsePathsToNodeIDsRequest) (*ua.TranslateBrowsePathsToNodeIDsResponse, error)
	Close(ctx context.Context) error
}
