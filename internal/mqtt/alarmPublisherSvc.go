package mqtt

import (
	"context"
	"net/url"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const clientIDPrefix = "uafacade::"

// AlarmPublisherSvc publishes alarm state changes over an autopaho managed
// connection. It reconnects on its own until Close is called.
type AlarmPublisherSvc struct {
	log      *logrus.Logger
	cfg      component.MQTT
	clientID string
	cm       *autopaho.ConnectionManager
}

// NewAlarmPublisherSvc starts connecting to the configured broker and returns
// without waiting for the connection to come up.
func NewAlarmPublisherSvc(ctx context.Context, cfg component.MQTT, log *logrus.Logger) (*AlarmPublisherSvc, error) {
	p := &AlarmPublisherSvc{log: log, cfg: cfg}
	cliCfg, err := p.clientConfig()
	if err != nil {
		return nil, err
	}
	p.clientID = cliCfg.ClientConfig.ClientID

	log.WithFields(logrus.Fields{
		"Broker":   cfg.URL,
		"ClientId": p.clientID,
	}).Infoln("Trying to establish an MQTT session 🔔")
	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mqtt broker")
	}
	p.cm = cm
	return p, nil
}

func (p *AlarmPublisherSvc) clientConfig() (autopaho.ClientConfig, error) {
	var cliCfg autopaho.ClientConfig

	connectTimeout, err := time.ParseDuration(p.cfg.ConnectTimeout)
	if err != nil {
		return cliCfg, errors.Wrap(err, "parsing mqtt connect timeout")
	}
	srvURL, err := url.Parse(p.cfg.URL)
	if err != nil {
		return cliCfg, errors.Wrapf(err, "parsing mqtt url %q", p.cfg.URL)
	}
	cliID := p.cfg.ClientID
	if cliID == "" {
		id, err := nanoid.New()
		if err != nil {
			return cliCfg, errors.Wrap(err, "generating mqtt client id")
		}
		cliID = clientIDPrefix + id
	}

	cliCfg = autopaho.ClientConfig{
		BrokerUrls:        []*url.URL{srvURL},
		KeepAlive:         p.cfg.KeepAlive,
		ConnectRetryDelay: time.Duration(p.cfg.ConnectRetry) * time.Second,
		ConnectTimeout:    connectTimeout,
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			p.log.WithField("ClientId", cliID).Infoln("MQTT connection up ✅")
		},
		OnConnectError: func(err error) {
			p.log.WithField("Err", err).Errorln("Error whilst attempting MQTT connection ⛔")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cliID,
			OnClientError: func(err error) {
				p.log.WithField("Err", err).Errorln("MQTT client error ⛔")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					p.log.WithField("Reason", d.Properties.ReasonString).Errorln("Server requested disconnect ⛔")
				} else {
					p.log.WithField("ReasonCode", d.ReasonCode).Errorln("Server requested disconnect ⛔")
				}
			},
		},
	}
	if p.cfg.User != "" {
		cliCfg.SetUsernamePassword(p.cfg.User, []byte(p.cfg.Password))
	}
	return cliCfg, nil
}

// ClientID is the id presented to the broker, generated when not configured.
func (p *AlarmPublisherSvc) ClientID() string {
	return p.clientID
}

// Publish waits for the connection and sends payload with the configured QoS
// and retain flag.
func (p *AlarmPublisherSvc) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := p.cm.AwaitConnection(ctx); err != nil {
		return errors.Wrap(err, "waiting for mqtt connection")
	}
	_, err := p.cm.Publish(ctx, &paho.Publish{
		QoS:     p.cfg.QoS,
		Retain:  p.cfg.Retain,
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		return errors.Wrapf(err, "publishing to %s", topic)
	}
	p.log.WithField("Topic", topic).Debugln("Alarm state published ✅")
	return nil
}

// Close disconnects from the broker.
func (p *AlarmPublisherSvc) Close(ctx context.Context) {
	p.log.WithField("ClientId", p.clientID).Debugln("Closing MQTT connection.. 🔔")
	if err := p.cm.Disconnect(ctx); err != nil {
		p.log.WithField("Err", err).Warnln("MQTT disconnect failed ⛔")
		return
	}
	p.log.WithField("ClientId", p.clientID).Infoln("MQTT connection closed ✅")
}
