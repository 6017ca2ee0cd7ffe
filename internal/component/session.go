package component

// Session holds the client side connection settings.
type Session struct {
	EndpointURL        string `mapstructure:"endpoint_url"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	CertificateFile    string `mapstructure:"certificate_file"`
	KeyFile            string `mapstructure:"key_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	// request timeout, e.g. "10s"
	RequestTimeout string `mapstructure:"request_timeout"`
}

type Cache struct {
	// how long a resolved node handle stays valid, e.g. "5m"; empty or "0s"
	// keeps handles for the lifetime of the object
	NodeHandleTTL         string `mapstructure:"node_handle_ttl"`
	MaxConcurrentRequests int    `mapstructure:"max_concurrent_requests"`
}

type Metrics struct {
	EnablePrometheus bool   `mapstructure:"enable_prometheus"`
	ListenAddr       string `mapstructure:"listen_addr"`
}
