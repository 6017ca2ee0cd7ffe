package config

import (
	"bytes"
	"strings"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "UAFACADE"

type Cfg struct {
	Session    component.Session    `mapstructure:"session"`
	Cache      component.Cache      `mapstructure:"cache"`
	DemoServer component.DemoServer `mapstructure:"demo_server"`
	Logger     component.Logger     `mapstructure:"logger"`
	Metrics    component.Metrics    `mapstructure:"metrics"`
	MQTT       component.MQTT       `mapstructure:"mqtt"`
}

// GetConfigs loads config.json from the usual places and panics when it
// cannot be used.
func GetConfigs() Cfg {
	cfg, err := Load(logrus.New(), "./configs/", "./internal/config/", "/configs/")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the defaults, then merges the first config.json found in paths
// over them. Env vars prefixed UAFACADE_ win over both, e.g.
// UAFACADE_SESSION_ENDPOINT_URL.
func Load(logger *logrus.Logger, paths ...string) (Cfg, error) {
	var configs Cfg
	v := viper.New()

	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		logger.Errorln("Error reading default configs ⛔")
		return configs, errors.Wrap(err, "reading default configs")
	}

	v.SetConfigName("config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warnln("Config file not found! using default configs 🔔")
		} else {
			logger.Errorln("Config file was found but another error was produced ⛔")
			return configs, errors.Wrap(err, "reading config file")
		}
	} else {
		logger.WithField("File", v.ConfigFileUsed()).Infoln("Config file found")
	}

	if err := v.Unmarshal(&configs); err != nil {
		logger.Errorln("Unable to unmarshal configs ⛔")
		return configs, errors.Wrap(err, "decoding configs")
	}
	if err := configs.validate(); err != nil {
		return configs, err
	}
	logger.Infoln("Configs parsed successfully ✅")
	return configs, nil
}

// NodeHandleTTL is the parsed cache.node_handle_ttl; zero means no expiry.
func (c Cfg) NodeHandleTTL() (time.Duration, error) {
	return parseDuration("cache.node_handle_ttl", c.Cache.NodeHandleTTL)
}

// RequestTimeout is the parsed session.request_timeout.
func (c Cfg) RequestTimeout() (time.Duration, error) {
	return parseDuration("session.request_timeout", c.Session.RequestTimeout)
}

// MQTTConnectTimeout is the parsed mqtt.connect_timeout.
func (c Cfg) MQTTConnectTimeout() (time.Duration, error) {
	return parseDuration("mqtt.connect_timeout", c.MQTT.ConnectTimeout)
}

func (c Cfg) validate() error {
	if _, err := c.NodeHandleTTL(); err != nil {
		return err
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if c.Cache.MaxConcurrentRequests < 0 {
		return errors.Errorf("cache.max_concurrent_requests must not be negative, got %d", c.Cache.MaxConcurrentRequests)
	}
	if c.Session.EndpointURL == "" {
		return errors.New("session.endpoint_url is required")
	}
	if c.MQTT.Enabled {
		if _, err := c.MQTTConnectTimeout(); err != nil {
			return err
		}
		if c.MQTT.URL == "" {
			return errors.New("mqtt.url is required when mqtt is enabled")
		}
		if c.MQTT.QoS > 2 {
			return errors.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must not be negative, got %s", key, s)
	}
	return d, nil
}

var defaultConfig = []byte(`
{
	"session": {
		"endpoint_url": "opc.tcp://127.0.0.1:46010",
		"username": "root",
		"password": "secret",
		"certificate_file": "./uaServerCerts/pki/client.crt",
		"key_file": "./uaServerCerts/pki/client.key",
		"insecure_skip_verify": true,
		"request_timeout": "10s"
	},

	"cache": {
		"node_handle_ttl": "0s",
		"max_concurrent_requests": 16
	},

	"demo_server": {
		"enabled": true,
		"host": "127.0.0.1",
		"port": 46010,
		"pki_dir": "./uaServerCerts/pki",
		"additional_hosts": [],
		"users": [
			{
				"username": "root",
				"password": "secret"
			}
		],
		"simulators": [
			{
				"sensor_id": "Temperature",
				"mean": 80.0,
				"standard_deviation": 5.0,
				"delay_min": 1,
				"delay_max": 3,
				"randomize": true,
				"high_high_limit": 110.0,
				"high_limit": 100.0,
				"low_limit": 40.0,
				"low_low_limit": 20.0
			},
			{
				"sensor_id": "Pressure",
				"mean": 80.0,
				"standard_deviation": 7.0,
				"delay_min": 2,
				"delay_max": 5,
				"randomize": false,
				"high_high_limit": 120.0,
				"high_limit": 95.0,
				"low_limit": 60.0,
				"low_low_limit": 50.0
			}
		]
	},

	"logger": {
		"level": "INFO",
		"format": "TEXT",
		"disable_timestamp": false
	},

	"metrics": {
		"enable_prometheus": true,
		"listen_addr": ":8080"
	},

	"mqtt": {
		"enabled": false,
		"url": "mqtt://127.0.0.1:1883",
		"client_id": "",
		"user": "",
		"password": "",
		"topic_prefix": "uafacade/alarms",
		"qos": 1,
		"retain": true,
		"keep_alive": 30,
		"connect_retry": 3,
		"connect_timeout": "10s"
	}
}
`)
