package services_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vendorNS = "urn:vendor:sensors"

// stubClient answers like a server whose namespace table is
// [UA, vendorNS].
type stubClient struct {
	mu         sync.Mutex
	translated []ua.BrowsePath
	reads      []ua.ReadValueID
	writes     []ua.WriteValue
	closed     bool

	browseResult ua.BrowsePathResult
	browseErr    error
	readResult   ua.DataValue
	writeStatus  ua.StatusCode

	// namespaceHook runs before the namespace table is served
	namespaceHook func()
}

func (c *stubClient) Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error) {
	if c.namespaceHook != nil && req.NodesToRead[0].NodeID == ua.VariableIDServerNamespaceArray {
		c.namespaceHook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = append(c.reads, req.NodesToRead...)
	if req.NodesToRead[0].NodeID == ua.VariableIDServerNamespaceArray {
		return &ua.ReadResponse{Results: []ua.DataValue{{Value: []string{models.NamespaceUA, vendorNS}}}}, nil
	}
	return &ua.ReadResponse{Results: []ua.DataValue{c.readResult}}, nil
}

func (c *stubClient) Write(ctx context.Context, req *ua.WriteRequest) (*ua.WriteResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, req.NodesToWrite...)
	return &ua.WriteResponse{Results: []ua.StatusCode{c.writeStatus}}, nil
}

func (c *stubClient) TranslateBrowsePathsToNodeIDs(ctx context.Context, req *ua.TranslateBrowsePathsToNodeIDsRequest) (*ua.TranslateBrowsePathsToNodeIDsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.translated = append(c.translated, req.BrowsePaths...)
	if c.browseErr != nil {
		return nil, c.browseErr
	}
	return &ua.TranslateBrowsePathsToNodeIDsResponse{Results: []ua.BrowsePathResult{c.browseResult}}, nil
}

func (c *stubClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func found(id ua.NodeID) ua.BrowsePathResult {
	return ua.BrowsePathResult{
		StatusCode: ua.Good,
		Targets: []ua.BrowsePathTarget{
			{TargetID: ua.ExpandedNodeID{NodeID: id}, RemainingPathIndex: math.MaxUint32},
		},
	}
}

func TestUaBrowse(t *testing.T) {
	want := ua.NodeIDNumeric{NamespaceIndex: 2, ID: 7}
	client := &stubClient{browseResult: found(want)}
	tr := services.NewUaTransportSvc(client, quietLogger())
	ctx := testContext(t)

	id, ok, err := tr.Browse(ctx, sensorID, "HighLimit", models.NamespaceUA)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, id)
	assert.Empty(t, client.reads, "standard namespace needs no table")

	path := client.translated[0]
	assert.Equal(t, sensorID, path.StartingNode)
	require.Len(t, path.RelativePath.Elements, 1)
	elem := path.RelativePath.Elements[0]
	assert.Equal(t, ua.ReferenceTypeIDHierarchicalReferences, elem.ReferenceTypeID)
	assert.True(t, elem.IncludeSubtypes)
	assert.Equal(t, ua.QualifiedName{NamespaceIndex: 0, Name: "HighLimit"}, elem.TargetName)
}

func TestUaBrowseVendorNamespace(t *testing.T) {
	client := &stubClient{browseResult: found(ua.NodeIDNumeric{NamespaceIndex: 1, ID: 9})}
	tr := services.NewUaTransportSvc(client, quietLogger())
	ctx := testContext(t)

	_, ok, err := tr.Browse(ctx, sensorID, "Gain", vendorNS)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint16(1), client.translated[0].RelativePath.Elements[0].TargetName.NamespaceIndex)

	_, ok, err = tr.Browse(ctx, sensorID, "Gain", vendorNS)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, client.reads, 1, "namespace table is read once")

	ns, ok, err := tr.NamespaceIndex(ctx, "urn:unknown")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, ns)
	_, ok, err = tr.Browse(ctx, sensorID, "Gain", "urn:unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUaBrowseNoMatch(t *testing.T) {
	client := &stubClient{browseResult: ua.BrowsePathResult{StatusCode: ua.BadNoMatch}}
	tr := services.NewUaTransportSvc(client, quietLogger())

	id, ok, err := tr.Browse(testContext(t), sensorID, "HighLimit", models.NamespaceUA)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, id)
}

func TestUaBrowseFailures(t *testing.T) {
	client := &stubClient{browseResult: ua.BrowsePathResult{StatusCode: ua.BadNodeIDUnknown}}
	tr := services.NewUaTransportSvc(client, quietLogger())
	ctx := testContext(t)

	_, _, err := tr.Browse(ctx, sensorID, "HighLimit", models.NamespaceUA)
	assert.True(t, models.IsOperationError(err))

	client.browseErr = errors.New("channel closed")
	_, _, err = tr.Browse(ctx, sensorID, "HighLimit", models.NamespaceUA)
	assert.True(t, models.IsServiceError(err))
}

func TestUaReadWrite(t *testing.T) {
	nodeID := ua.NodeIDNumeric{NamespaceIndex: 2, ID: 7}
	client := &stubClient{
		readResult:  ua.DataValue{Value: 100.0},
		writeStatus: ua.BadNotWritable,
	}
	tr := services.NewUaTransportSvc(client, quietLogger())
	ctx := testContext(t)

	dv, err := tr.ReadAttribute(ctx, nodeID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, dv.Value)
	assert.Equal(t, ua.AttributeIDValue, client.reads[0].AttributeID)

	status, err := tr.WriteAttribute(ctx, nodeID, ua.DataValue{Value: 120.0})
	require.NoError(t, err, "per-node status is not a transport error")
	assert.Equal(t, ua.BadNotWritable, status)
	assert.Equal(t, 120.0, client.writes[0].Value.Value)

	require.NoError(t, tr.Close(ctx))
	assert.True(t, client.closed)
}

func TestNamespaceReadSurvivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	client := &stubClient{namespaceHook: func() {
		once.Do(func() { close(started) })
		<-release
	}}
	tr := services.NewUaTransportSvc(client, quietLogger())

	first, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := tr.NamespaceIndex(first, vendorNS)
		firstErr <- err
	}()
	waitFor(t, started)

	type result struct {
		ns  uint16
		ok  bool
		err error
	}
	ctx := testContext(t)
	second := make(chan result, 1)
	go func() {
		ns, ok, err := tr.NamespaceIndex(ctx, vendorNS)
		second <- result{ns, ok, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	err := waitFor(t, firstErr)
	assert.True(t, models.IsServiceError(err))
	assert.True(t, errors.Is(err, context.Canceled))

	close(release)
	r := waitFor(t, second)
	require.NoError(t, r.err)
	assert.True(t, r.ok)
	assert.Equal(t, uint16(1), r.ns)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Len(t, client.reads, 1)
}
