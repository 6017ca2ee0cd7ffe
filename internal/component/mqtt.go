package component

// MQTT configures the optional broker that alarm state changes are
// published to.
type MQTT struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	ClientID string `mapstructure:"client_id"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	// e.g. "uafacade/alarms"; the alarm node id is appended
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         byte   `mapstructure:"qos"`
	Retain      bool   `mapstructure:"retain"`
	KeepAlive   uint16 `mapstructure:"keep_alive"`
	// seconds between connection attempts
	ConnectRetry   int    `mapstructure:"connect_retry"`
	ConnectTimeout string `mapstructure:"connect_timeout"`
}
