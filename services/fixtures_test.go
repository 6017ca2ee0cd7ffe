package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/amine-amaach/uafacade/internal/fakeua"
	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/stretchr/testify/require"
)

var sensorID = ua.NodeIDString{NamespaceIndex: 2, ID: "Temperature"}

// sensorType is a small two-level hierarchy: sensor -> base.
type sensorType struct {
	base       *services.ObjectType
	sensor     *services.ObjectType
	other      *services.ObjectType
	name       *services.Property[string]
	highLimit  *services.Property[float64]
	tags       *services.Property[[]string]
	limitState *services.Component[*services.Object]
	otherProp  *services.Property[uint32]
}

func newSensorType(t *testing.T) *sensorType {
	t.Helper()
	st := &sensorType{}
	st.base = services.NewObjectType("TestBaseType", nil)
	st.name = services.NewProperty[string](st.base, "SourceName", ua.DataTypeIDString, models.ValueRankScalar)

	st.sensor = services.NewObjectType("TestSensorType", nil, st.base)
	st.highLimit = services.NewProperty[float64](st.sensor, "HighLimit", ua.DataTypeIDDouble, models.ValueRankScalar)
	st.tags = services.NewProperty[[]string](st.sensor, "Tags", ua.DataTypeIDString, models.ValueRankOneDimension)
	st.limitState = services.NewComponent(st.sensor, "LimitState", st.base, func(o *services.Object) *services.Object { return o })

	st.other = services.NewObjectType("TestOtherType", nil)
	st.otherProp = services.NewProperty[uint32](st.other, "Count", ua.DataTypeIDUInt32, models.ValueRankScalar)

	reg := services.NewRegistry()
	require.NoError(t, reg.Register(st.sensor))
	require.NoError(t, reg.Register(st.base))
	require.NoError(t, reg.Register(st.other))
	return st
}

func newSession(t *testing.T, tr *fakeua.Transport, opts ...services.SessionOption) *services.Session {
	t.Helper()
	s := services.NewSession(tr, opts...)
	t.Cleanup(s.Close)
	return s
}

func bind(t *testing.T, s *services.Session, typ *services.ObjectType) *services.Object {
	t.Helper()
	obj, err := s.Bind(sensorID, typ)
	require.NoError(t, err)
	return obj
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
