package ports

import (
	"context"

	"github.com/awcullen/opcua/ua"
)

// SessionTransport is the request/response surface of an established,
// authenticated OPC-UA session that the property access layer consumes.
//
// Calls block until the server answers or ctx is done. A failed request is
// reported as *models.ServiceError; a request the server rejected for the
// addressed node as *models.OperationError.
type SessionTransport interface {

	// Browse locates the child of parent whose browse name matches
	// browseName in namespaceURI. A missing child is reported as
	// (nil, false, nil), not as an error.
	Browse(ctx context.Context, parent ua.NodeID, browseName, namespaceURI string) (ua.NodeID, bool, error)

	// ReadAttribute reads the Value attribute of nodeID.
	ReadAttribute(ctx context.Context, nodeID ua.NodeID) (ua.DataValue, error)

	// WriteAttribute writes the Value attribute of nodeID.
	WriteAttribute(ctx context.Context, nodeID ua.NodeID, value ua.DataValue) (ua.StatusCode, error)
}
