package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/amine-amaach/uafacade/ports"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// UaTransportSvc implements ports.SessionTransport over an awcullen/opcua
// client channel.
type UaTransportSvc struct {
	client  ports.UaClient
	log     *logrus.Logger
	timeout time.Duration

	mu         sync.RWMutex
	namespaces []string
	refresh    singleflight.Group
}

func NewUaTransportSvc(client ports.UaClient, log *logrus.Logger) *UaTransportSvc {
	return &UaTransportSvc{client: client, log: log, timeout: DefaultRequestTimeout}
}

// SetRequestTimeout bounds the shared namespace table read.
func (t *UaTransportSvc) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

// Browse translates the single-element path parent/namespaceURI:browseName
// following hierarchical references.
func (t *UaTransportSvc) Browse(ctx context.Context, parent ua.NodeID, browseName, namespaceURI string) (ua.NodeID, bool, error) {
	ns, ok, err := t.NamespaceIndex(ctx, namespaceURI)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		t.log.WithFields(logrus.Fields{
			"Namespace": namespaceURI,
			"Parent":    parent,
		}).Debugln("Namespace not in server table 🔔")
		return nil, false, nil
	}

	req := &ua.TranslateBrowsePathsToNodeIDsRequest{
		BrowsePaths: []ua.BrowsePath{
			{
				StartingNode: parent,
				RelativePath: ua.RelativePath{
					Elements: []ua.RelativePathElement{
						{
							ReferenceTypeID: ua.ReferenceTypeIDHierarchicalReferences,
							IncludeSubtypes: true,
							TargetName:      ua.QualifiedName{NamespaceIndex: ns, Name: browseName},
						},
					},
				},
			},
		},
	}
	res, err := t.client.TranslateBrowsePathsToNodeIDs(ctx, req)
	if err != nil {
		return nil, false, &models.ServiceError{Op: "browse", NodeID: parent, Err: err}
	}
	if res.ResponseHeader.ServiceResult.IsBad() {
		return nil, false, &models.ServiceError{Op: "browse", NodeID: parent, Err: res.ResponseHeader.ServiceResult}
	}
	if len(res.Results) != 1 {
		return nil, false, &models.ServiceError{Op: "browse", NodeID: parent, Err: errors.Errorf("expected 1 result, got %d", len(res.Results))}
	}
	result := res.Results[0]
	switch {
	case result.StatusCode == ua.BadNoMatch:
		return nil, false, nil
	case result.StatusCode.IsBad():
		return nil, false, &models.OperationError{Op: "browse", NodeID: parent, StatusCode: result.StatusCode}
	}
	for _, target := range result.Targets {
		if target.RemainingPathIndex != math.MaxUint32 {
			continue
		}
		if id := ua.ToNodeID(target.TargetID, t.namespaceTable()); id != nil {
			return id, true, nil
		}
	}
	return nil, false, nil
}

func (t *UaTransportSvc) ReadAttribute(ctx context.Context, nodeID ua.NodeID) (ua.DataValue, error) {
	req := &ua.ReadRequest{
		NodesToRead: []ua.ReadValueID{
			{NodeID: nodeID, AttributeID: ua.AttributeIDValue},
		},
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	}
	res, err := t.client.Read(ctx, req)
	if err != nil {
		return ua.NilDataValue, &models.ServiceError{Op: "read", NodeID: nodeID, Err: err}
	}
	if res.ResponseHeader.ServiceResult.IsBad() {
		return ua.NilDataValue, &models.ServiceError{Op: "read", NodeID: nodeID, Err: res.ResponseHeader.ServiceResult}
	}
	if len(res.Results) != 1 {
		return ua.NilDataValue, &models.ServiceError{Op: "read", NodeID: nodeID, Err: errors.Errorf("expected 1 result, got %d", len(res.Results))}
	}
	return res.Results[0], nil
}

func (t *UaTransportSvc) WriteAttribute(ctx context.Context, nodeID ua.NodeID, value ua.DataValue) (ua.StatusCode, error) {
	req := &ua.WriteRequest{
		NodesToWrite: []ua.WriteValue{
			{NodeID: nodeID, AttributeID: ua.AttributeIDValue, Value: value},
		},
	}
	res, err := t.client.Write(ctx, req)
	if err != nil {
		return ua.BadCommunicationError, &models.ServiceError{Op: "write", NodeID: nodeID, Err: err}
	}
	if res.ResponseHeader.ServiceResult.IsBad() {
		return res.ResponseHeader.ServiceResult, &models.ServiceError{Op: "write", NodeID: nodeID, Err: res.ResponseHeader.ServiceResult}
	}
	if len(res.Results) != 1 {
		return ua.BadUnexpectedError, &models.ServiceError{Op: "write", NodeID: nodeID, Err: errors.Errorf("expected 1 result, got %d", len(res.Results))}
	}
	return res.Results[0], nil
}

// Close closes the underlying client channel.
func (t *UaTransportSvc) Close(ctx context.Context) error {
	if err := t.client.Close(ctx); err != nil {
		t.log.WithField("Err", err).Errorln("Couldn't close OPC-UA channel ⛔")
		return errors.Wrap(err, "closing channel")
	}
	t.log.Infoln("OPC-UA channel closed ✅")
	return nil
}

func (t *UaTransportSvc) namespaceTable() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.namespaces
}

// NamespaceIndex maps a namespace URI to the server's index for it. The
// table is read once and read again when an unknown URI is requested.
func (t *UaTransportSvc) NamespaceIndex(ctx context.Context, uri string) (uint16, bool, error) {
	if uri == "" || uri == models.NamespaceUA {
		return 0, true, nil
	}
	if i, ok := indexOf(t.namespaceTable(), uri); ok {
		return i, true, nil
	}
	// shared by every caller waiting on the table, so not bound to this ctx
	flightCtx := context.WithoutCancel(ctx)
	ch := t.refresh.DoChan("namespaces", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(flightCtx, t.timeout)
		defer cancel()
		return nil, t.readNamespaces(ctx)
	})
	select {
	case <-ctx.Done():
		return 0, false, &models.ServiceError{Op: "read", NodeID: ua.VariableIDServerNamespaceArray, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return 0, false, res.Err
		}
	}
	i, ok := indexOf(t.namespaceTable(), uri)
	return i, ok, nil
}

func (t *UaTransportSvc) readNamespaces(ctx context.Context) error {
	dv, err := t.ReadAttribute(ctx, ua.VariableIDServerNamespaceArray)
	if err != nil {
		return err
	}
	if dv.StatusCode.IsBad() {
		return &models.OperationError{Op: "read", NodeID: ua.VariableIDServerNamespaceArray, StatusCode: dv.StatusCode}
	}
	uris, ok := dv.Value.([]string)
	if !ok {
		return &models.OperationError{Op: "decode", NodeID: ua.VariableIDServerNamespaceArray, StatusCode: ua.BadTypeMismatch}
	}
	t.mu.Lock()
	t.namespaces = uris
	t.mu.Unlock()
	t.log.WithField("Namespaces", len(uris)).Debugln("Namespace table read 🔔")
	return nil
}

func indexOf(table []string, uri string) (uint16, bool) {
	for i, u := range table {
		if u == uri {
			return uint16(i), true
		}
	}
	return 0, false
}
