package cli

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/amine-amaach/uafacade/internal/fakeua"
	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/types"
	"github.com/awcullen/opcua/ua"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var temperatureID = ua.NodeIDString{NamespaceIndex: 2, ID: "Temperature"}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newAlarm(t *testing.T, tr *fakeua.Transport) *types.ExclusiveLimitAlarm {
	t.Helper()
	s := services.NewSession(tr)
	t.Cleanup(s.Close)
	alarm, err := types.NewExclusiveLimitAlarm(s, temperatureID)
	require.NoError(t, err)
	return alarm
}

func TestInspectAlarm(t *testing.T) {
	tr := fakeua.New()
	highLimit := tr.AddProperty(temperatureID, "HighLimit", 100.0)
	tr.AddProperty(temperatureID, "SourceName", "Temperature")
	limitState := tr.AddObject(temperatureID, "LimitState")
	tr.AddProperty(limitState, "CurrentState", ua.LocalizedText{Text: "High"})
	alarm := newAlarm(t, tr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, InspectAlarm(ctx, alarm, quietLogger()))
	assert.Equal(t, 105.0, tr.Value(highLimit))
	v, _ := alarm.HighLimit().Get()
	assert.Equal(t, 105.0, v)
}

func TestInspectAlarmWithoutHighLimit(t *testing.T) {
	tr := fakeua.New()
	alarm := newAlarm(t, tr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Error(t, InspectAlarm(ctx, alarm, quietLogger()))
	assert.Zero(t, tr.Writes())
}

func TestLimitStateOf(t *testing.T) {
	tr := fakeua.New()
	alarm := newAlarm(t, tr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := LimitStateOf(ctx, alarm)
	require.NoError(t, err)
	assert.Empty(t, state, "no LimitState child")

	limitState := tr.AddObject(temperatureID, "LimitState")
	state, err = LimitStateOf(ctx, alarm)
	require.NoError(t, err)
	assert.Empty(t, state, "no CurrentState child")

	tr.AddProperty(limitState, "CurrentState", ua.LocalizedText{Text: "LowLow"})
	state, err = LimitStateOf(ctx, alarm)
	require.NoError(t, err)
	assert.Equal(t, "LowLow", state)
}

type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	messages []component.AlarmMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	var msg component.AlarmMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) published() []component.AlarmMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]component.AlarmMessage(nil), p.messages...)
}

func TestMonitorStopsWithContext(t *testing.T) {
	tr := fakeua.New()
	tr.AddProperty(temperatureID, "ActiveState", ua.LocalizedText{Text: "Active"})
	alarm := newAlarm(t, tr)
	ctx, cancel := context.WithCancel(context.Background())

	m := &AlarmMonitor{
		Alarms:   []*types.ExclusiveLimitAlarm{alarm},
		Interval: 10 * time.Millisecond,
		Log:      quietLogger(),
	}
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	assert.Eventually(t, func() bool { return tr.Reads() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitorPublishesStateChanges(t *testing.T) {
	tr := fakeua.New()
	active := tr.AddProperty(temperatureID, "ActiveState", ua.LocalizedText{Text: "Inactive"})
	alarm := newAlarm(t, tr)
	pub := &recordingPublisher{}
	m := &AlarmMonitor{
		Alarms:      []*types.ExclusiveLimitAlarm{alarm},
		Publisher:   pub,
		TopicPrefix: "plant/alarms/",
		Log:         quietLogger(),
		last:        map[*types.ExclusiveLimitAlarm]observed{},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.poll(ctx)
	m.poll(ctx)
	require.Len(t, pub.published(), 1, "unchanged state is published once")

	tr.SetValue(active, ua.LocalizedText{Text: "Active"})
	m.poll(ctx)

	msgs := pub.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Inactive", msgs[0].ActiveState)
	assert.Empty(t, msgs[0].PreviousActiveState)
	assert.Empty(t, msgs[0].PreviousTimestamp)
	assert.Equal(t, "Active", msgs[1].ActiveState)
	assert.Equal(t, "Inactive", msgs[1].PreviousActiveState)
	assert.NotEmpty(t, msgs[1].PreviousTimestamp)
	assert.Nil(t, msgs[1].HighLimit, "HighLimit was never read")
	assert.Equal(t, "plant/alarms/"+temperatureID.String(), pub.topics[1])
	assert.Equal(t, temperatureID.String(), msgs[1].AlarmId)
}

func TestAlarmTopic(t *testing.T) {
	assert.Equal(t, "ns=2;s=Temperature", AlarmTopic("", temperatureID))
	assert.Equal(t, "a/b/ns=2;s=Temperature", AlarmTopic("a/b", temperatureID))
	assert.Equal(t, "a/b/ns=2;s=Temperature", AlarmTopic("a/b/", temperatureID))
}
