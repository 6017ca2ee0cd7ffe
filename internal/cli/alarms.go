package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/amine-amaach/uafacade/ports"
	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/amine-amaach/uafacade/types"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// highLimitStep is how far InspectAlarm raises the high limit.
const highLimitStep = 5.0

// InspectAlarm dumps every property of alarm, raises its HighLimit and reads
// back which limit state is active.
func InspectAlarm(ctx context.Context, alarm *types.ExclusiveLimitAlarm, log *logrus.Logger) error {
	values, err := alarm.Object().ReadAll(ctx)
	if err != nil {
		log.WithFields(logrus.Fields{
			"Alarm": alarm.Object().NodeID(),
			"Err":   err,
		}).Warnln("Couldn't read every property ⛔")
	}
	fields := logrus.Fields{"Alarm": alarm.Object().NodeID()}
	for name, v := range values {
		fields[name] = v
	}
	log.WithFields(fields).Infoln("Alarm properties 🔔")

	highLimit := alarm.HighLimit()
	current, ok := highLimit.Get()
	if !ok {
		if current, err = highLimit.Read(ctx); err != nil {
			return errors.Wrap(err, "reading HighLimit")
		}
	}
	if err := highLimit.Write(ctx, current+highLimitStep); err != nil {
		return errors.Wrap(err, "writing HighLimit")
	}
	updated, _ := highLimit.Get()
	log.WithFields(logrus.Fields{
		"Alarm": alarm.Object().NodeID(),
		"From":  current,
		"To":    updated,
	}).Infoln("HighLimit updated ✅")

	state, err := LimitStateOf(ctx, alarm)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"Alarm":       alarm.Object().NodeID(),
		"Limit State": state,
	}).Infoln("Limit state read ✅")
	return nil
}

// LimitStateOf reads the current state of the alarm's LimitState machine.
// An alarm without a LimitState child reports "".
func LimitStateOf(ctx context.Context, alarm *types.ExclusiveLimitAlarm) (string, error) {
	sm, err := alarm.LimitState().GetNode(ctx)
	if err != nil {
		return "", errors.Wrap(err, "resolving LimitState")
	}
	if sm == nil {
		return "", nil
	}
	current, err := sm.CurrentState().Read(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "reading LimitState/CurrentState")
	}
	return current.Text, nil
}

// AlarmMonitor polls the active state of every alarm. Each change of an
// alarm's active state is logged and, when Publisher is set, published as an
// AlarmMessage under TopicPrefix.
type AlarmMonitor struct {
	Alarms      []*types.ExclusiveLimitAlarm
	Interval    time.Duration
	Publisher   ports.AlarmPublisher
	TopicPrefix string
	Log         *logrus.Logger

	last map[*types.ExclusiveLimitAlarm]observed
}

type observed struct {
	state string
	at    time.Time
}

// Run polls every Interval until ctx is done. Reads of one round are issued
// together and awaited afterwards.
func (m *AlarmMonitor) Run(ctx context.Context) {
	m.last = make(map[*types.ExclusiveLimitAlarm]observed, len(m.Alarms))
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		m.poll(ctx)
	}
}

func (m *AlarmMonitor) poll(ctx context.Context) {
	futures := make([]*services.Future[ua.LocalizedText], len(m.Alarms))
	for i, alarm := range m.Alarms {
		futures[i] = alarm.ActiveState().ReadAsync(ctx)
	}
	for i, f := range futures {
		alarm := m.Alarms[i]
		active, err := f.Await(ctx)
		if err != nil {
			m.Log.WithFields(logrus.Fields{
				"Alarm":  alarm.Object().NodeID(),
				"Future": f.ID(),
				"Err":    err,
			}).Warnln("Couldn't read active state ⛔")
			continue
		}
		prev, seen := m.last[alarm]
		now := time.Now()
		if seen && prev.state == active.Text {
			continue
		}
		m.last[alarm] = observed{state: active.Text, at: now}
		m.changed(ctx, alarm, active.Text, prev, now)
	}
}

func (m *AlarmMonitor) changed(ctx context.Context, alarm *types.ExclusiveLimitAlarm, state string, prev observed, now time.Time) {
	limitState, _ := LimitStateOf(ctx, alarm)
	var highLimit interface{}
	if v, ok := alarm.HighLimit().Get(); ok {
		highLimit = v
	}
	fields := logrus.Fields{
		"Alarm":        alarm.Object().NodeID(),
		"Active State": state,
		"Limit State":  limitState,
		"High Limit":   highLimit,
	}
	if state == "Active" {
		m.Log.WithFields(fields).Warnln("Alarm active 🔔")
	} else {
		m.Log.WithFields(fields).Infoln("Alarm state changed 🔔")
	}
	if m.Publisher == nil {
		return
	}

	msg := component.AlarmMessage{
		AlarmTopic:          AlarmTopic(m.TopicPrefix, alarm.Object().NodeID()),
		AlarmId:             fmt.Sprint(alarm.Object().NodeID()),
		ActiveState:         state,
		PreviousActiveState: prev.state,
		LimitState:          limitState,
		HighLimit:           highLimit,
		ChangedTimestamp:    now.UTC().Format(time.RFC3339),
	}
	if !prev.at.IsZero() {
		msg.PreviousTimestamp = prev.at.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		m.Log.WithField("Err", err).Errorln("Couldn't encode alarm message ⛔")
		return
	}
	if err := m.Publisher.Publish(ctx, msg.AlarmTopic, payload); err != nil {
		m.Log.WithFields(logrus.Fields{
			"Topic": msg.AlarmTopic,
			"Err":   err,
		}).Errorln("Couldn't publish alarm state ⛔")
	}
}

// AlarmTopic is the topic an alarm's state is published to.
func AlarmTopic(prefix string, nodeID ua.NodeID) string {
	id := fmt.Sprint(nodeID)
	if prefix == "" {
		return id
	}
	return strings.TrimSuffix(prefix, "/") + "/" + id
}
