package config

type Config interface {
	SessionConfig
	StoreConfig
	StreamConfig
}

type SessionConfig interface {
	GetAuthBaseURL() string
	GetSkewSeconds() int
	GetHTTPTimeoutSeconds() int
}

type StoreConfig interface {
	GetCredentialsPath() string
	GetCredentialsPassphrase() string
}

type StreamConfig interface {
	GetUpdatesURL() string
	GetUpdateBufferSize() int
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
