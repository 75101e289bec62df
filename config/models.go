package config

const (
	LNDBackendType = "LND"
)

type AppConfig struct {
	LNBackendType   string `envconfig:"LN_BACKEND_TYPE" default:"LND"`
	LNDAddress      string `envconfig:"LND_ADDRESS"`
	LNDCertFile     string `envconfig:"LND_CERT_FILE"`
	LNDMacaroonFile string `envconfig:"LND_MACAROON_FILE"`
	Workdir         string `envconfig:"WORK_DIR"`
	Port            string `envconfig:"PORT" default:"8029"`
	DatabaseUri     string `envconfig:"DATABASE_URI" default:"payflow.db"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"4"`
	LogToFile       bool   `envconfig:"LOG_TO_FILE" default:"true"`
	LogDBQueries    bool   `envconfig:"LOG_DB_QUERIES" default:"false"`
	Network         string `envconfig:"NETWORK" default:"mainnet"`
	BaseUrl         string `envconfig:"BASE_URL"`
	AuthPassword    string `envconfig:"AUTH_PASSWORD"`

	// default expiry for created payment requests, in seconds
	RequestExpiry uint64 `envconfig:"REQUEST_EXPIRY" default:"3600"`
}

type Config interface {
	Get(key string) (string, error)
	SetIgnore(key string, value string) error
	SetUpdate(key string, value string) error
	GetJWTSecret() (string, error)
	GetNetwork() string
	GetEnv() *AppConfig
}
