package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amine-amaach/uafacade/internal/fakeua"
	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFillsCache(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	_, ok := highLimit.Get()
	assert.False(t, ok, "nothing observed yet")

	v, err := highLimit.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	calls := tr.Calls()
	cached, ok := highLimit.Get()
	assert.True(t, ok)
	assert.Equal(t, 100.0, cached)
	assert.Equal(t, calls, tr.Calls(), "Get must not talk to the server")

	ts, ok := highLimit.Timestamp()
	assert.True(t, ok)
	assert.False(t, ts.IsZero())
}

func TestWriteUpdatesServerAndCache(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	id := tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	require.NoError(t, highLimit.Write(ctx, 120.0))
	v, ok := highLimit.Get()
	assert.True(t, ok)
	assert.Equal(t, 120.0, v)
	assert.Equal(t, 120.0, tr.Value(id))

	read, err := highLimit.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120.0, read)
	assert.Equal(t, 1, tr.Browses(), "handle is resolved once")
}

func TestSetIsLocal(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	id := tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)

	highLimit.Set(5)
	v, ok := highLimit.Get()
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Zero(t, tr.Calls())
	assert.Equal(t, 100.0, tr.Value(id))
}

func TestFailedReadKeepsCache(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	id := tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	highLimit.Set(7)
	tr.SetStatus(id, ua.BadUserAccessDenied)

	_, err := highLimit.Read(ctx)
	require.Error(t, err)
	assert.True(t, models.IsOperationError(err))
	status, ok := models.StatusCodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, ua.BadUserAccessDenied, status)

	v, _ := highLimit.Get()
	assert.Equal(t, 7.0, v)
}

func TestFailedWriteKeepsCache(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	id := tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	_, err := highLimit.Read(ctx)
	require.NoError(t, err)
	tr.SetStatus(id, ua.BadNotWritable)

	err = highLimit.Write(ctx, 1)
	require.Error(t, err)
	status, _ := models.StatusCodeOf(err)
	assert.Equal(t, ua.BadNotWritable, status)

	v, _ := highLimit.Get()
	assert.Equal(t, 100.0, v)
}

func TestServiceErrorOnTransportFailure(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	tr.ReadErr = errors.New("connection reset")
	_, err := highLimit.Read(ctx)
	require.Error(t, err)
	assert.True(t, models.IsServiceError(err))
	assert.False(t, models.IsOperationError(err))
}

func TestAbsentChild(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	_, err := highLimit.Read(ctx)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = highLimit.Write(ctx, 1)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Zero(t, tr.Writes())

	node, err := highLimit.GetNode(ctx)
	assert.NoError(t, err)
	assert.Nil(t, node)

	// a miss is not remembered, the child may appear later
	assert.Equal(t, 3, tr.Browses())
	id := tr.AddProperty(sensorID, "HighLimit", 90.0)
	node, err = highLimit.GetNode(ctx)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, id, node.NodeID)
	assert.Equal(t, sensorID, node.Parent)
	assert.Equal(t, "HighLimit", node.Key.BrowseName())
}

func TestGetNodeFromCache(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	first, err := highLimit.GetNode(ctx)
	require.NoError(t, err)
	second, err := highLimit.GetNode(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.NodeID, second.NodeID)
	assert.Equal(t, 1, tr.Browses())
}

func TestNotDeclared(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "Count", uint32(3))
	obj := bind(t, newSession(t, tr), st.sensor)
	count := st.otherProp.Bind(obj)
	ctx := testContext(t)

	_, err := count.Read(ctx)
	assert.True(t, errors.Is(err, models.ErrNotDeclared))
	assert.True(t, errors.Is(count.Write(ctx, 1), models.ErrNotDeclared))
	_, err = count.GetNode(ctx)
	assert.True(t, errors.Is(err, models.ErrNotDeclared))
	assert.Zero(t, tr.Calls())
}

func TestInheritedProperty(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "SourceName", "Temperature")
	obj := bind(t, newSession(t, tr), st.sensor)

	v, err := st.name.Bind(obj).Read(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "Temperature", v)
}

func TestTypeMismatch(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", "not a number")
	obj := bind(t, newSession(t, tr), st.sensor)

	_, err := st.highLimit.Bind(obj).Read(testContext(t))
	require.Error(t, err)
	status, _ := models.StatusCodeOf(err)
	assert.Equal(t, ua.BadTypeMismatch, status)
}

func TestArrayOfVariants(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "Tags", []ua.Variant{"a", "b"})
	obj := bind(t, newSession(t, tr), st.sensor)

	v, err := st.tags.Bind(obj).Read(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
}

func TestNullVariantDecodesToZero(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", nil)
	obj := bind(t, newSession(t, tr), st.sensor)

	v, err := st.highLimit.Bind(obj).Read(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestConcurrentAsyncReads(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", 100.0)
	tr.AddProperty(sensorID, "SourceName", "Temperature")
	obj := bind(t, newSession(t, tr, services.WithMaxConcurrentRequests(4)), st.sensor)
	ctx := testContext(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limit := st.highLimit.Bind(obj).ReadAsync(ctx)
			name := st.name.Bind(obj).ReadAsync(ctx)
			v, err := limit.Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 100.0, v)
			n, err := name.Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "Temperature", n)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, tr.Browses(), "one browse per property")
	assert.Equal(t, 40, tr.Reads())
}

func TestWriteAsyncStatus(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	ctx := testContext(t)

	status, err := st.highLimit.Bind(obj).WriteAsync(ctx, 110).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, ua.Good, status)
}

func TestNullNodeIDIsCached(t *testing.T) {
	typ := services.NewObjectType("TestBranchType", nil)
	branch := services.NewProperty[ua.NodeID](typ, "BranchId", ua.DataTypeIDNodeID, models.ValueRankScalar)
	require.NoError(t, services.NewRegistry().Register(typ))
	tr := fakeua.New()
	tr.AddProperty(sensorID, "BranchId", nil)
	branchID := branch.Bind(bind(t, newSession(t, tr), typ))

	v, err := branchID.Read(testContext(t))
	require.NoError(t, err)
	assert.Nil(t, v)

	calls := tr.Calls()
	cached, ok := branchID.Get()
	assert.True(t, ok, "a null value read from the server is still a value")
	assert.Nil(t, cached)
	assert.Equal(t, calls, tr.Calls())

	branchID.Set(ua.NodeIDNumeric{NamespaceIndex: 2, ID: 9})
	branchID.Set(nil)
	cached, ok = branchID.Get()
	assert.True(t, ok)
	assert.Nil(t, cached)
}

func TestGetNodeOnceUnderContention(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	want := tr.AddProperty(sensorID, "HighLimit", 100.0)
	tr.BrowseHook = func(context.Context) { time.Sleep(20 * time.Millisecond) }
	obj := bind(t, newSession(t, tr), st.sensor)
	ctx := testContext(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			node, err := st.highLimit.Bind(obj).GetNode(ctx)
			if assert.NoError(t, err) && assert.NotNil(t, node) {
				assert.Equal(t, want, node.NodeID)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, tr.Browses())
}

func TestCancelledGetNodeDoesNotFailOthers(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	want := tr.AddProperty(sensorID, "HighLimit", 100.0)
	started, release := blockingBrowse(tr)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	ctx := testContext(t)

	first := highLimit.GetNodeAsync(ctx)
	waitFor(t, started)
	second := highLimit.GetNodeAsync(ctx)
	time.Sleep(20 * time.Millisecond)
	first.Cancel()

	_, err := first.Await(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	close(release)
	node, err := second.Await(ctx)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, want, node.NodeID)
	assert.Equal(t, 1, tr.Browses())
}

func TestReadDeadlineIsServiceError(t *testing.T) {
	st := newSensorType(t)
	tr := fakeua.New()
	tr.AddProperty(sensorID, "HighLimit", 100.0)
	obj := bind(t, newSession(t, tr), st.sensor)
	highLimit := st.highLimit.Bind(obj)
	highLimit.Set(7)

	tr.ReadErr = context.DeadlineExceeded
	_, err := highLimit.Read(testContext(t))
	require.Error(t, err)
	assert.True(t, models.IsServiceError(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	v, _ := highLimit.Get()
	assert.Equal(t, 7.0, v)
}
