package component

type UserID struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LimitSensor is one simulated sensor exposed as an exclusive limit alarm.
type LimitSensor struct {
	SensorId      string  `mapstructure:"sensor_id"`
	Mean          float64 `mapstructure:"mean"`
	Std           float64 `mapstructure:"standard_deviation"`
	DelayMin      uint32  `mapstructure:"delay_min"`
	DelayMax      uint32  `mapstructure:"delay_max"`
	Randomize     bool    `mapstructure:"randomize"`
	HighHighLimit float64 `mapstructure:"high_high_limit"`
	HighLimit     float64 `mapstructure:"high_limit"`
	LowLimit      float64 `mapstructure:"low_limit"`
	LowLowLimit   float64 `mapstructure:"low_low_limit"`
}

type DemoServer struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PKIDir          string        `mapstructure:"pki_dir"`
	AdditionalHosts []string      `mapstructure:"additional_hosts"`
	Users           []UserID      `mapstructure:"users"`
	Simulators      []LimitSensor `mapstructure:"simulators"`
}
