package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	authBaseURLVar      = "KUBEDECK_AUTH_URL"
	skewSecondsVar      = "KUBEDECK_TOKEN_SKEW_SECONDS"
	httpTimeoutVar      = "KUBEDECK_HTTP_TIMEOUT_SECONDS"
	credentialsPathVar  = "KUBEDECK_CREDENTIALS_FILE"
	passphraseVar       = "KUBEDECK_CREDENTIALS_PASSPHRASE"
	updatesURLVar       = "KUBEDECK_UPDATES_URL"
	updateBufferSizeVar = "KUBEDECK_UPDATE_BUFFER_SIZE"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetAuthBaseURL() string {
	return GetEnv(authBaseURLVar, "http://localhost:8080")
}

func (EnvVars) GetSkewSeconds() int {
	return GetEnvInt(skewSecondsVar, 30)
}

func (EnvVars) GetHTTPTimeoutSeconds() int {
	return GetEnvInt(httpTimeoutVar, 10)
}

func (EnvVars) GetCredentialsPath() string {
	if path := os.Getenv(credentialsPathVar); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.enc"
	}
	return filepath.Join(home, ".kubedeck", "credentials.enc")
}

func (EnvVars) GetCredentialsPassphrase() string {
	return GetEnv(passphraseVar, "")
}

func (EnvVars) GetUpdatesURL() string {
	return GetEnv(updatesURLVar, "")
}

func (EnvVars) GetUpdateBufferSize() int {
	return GetEnvInt(updateBufferSizeVar, 256)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
