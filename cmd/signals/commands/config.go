package commands

import (
	"errors"
	"os"
	"social-signals/lib/budget"
	"social-signals/lib/configutil"
	"social-signals/lib/sources/wikipedia"
	"social-signals/lib/telemetry"
)

const defaultConfigName = "signals.json5"

type GDELTConfig struct {
	// CredentialsPath is the path to a service account key file.
	CredentialsPath string  `json:"credentials_path"`
	ProjectID       string  `json:"project_id"`
	DataLimitGB     float64 `json:"data_limit_gb"`
}

type NOAAConfig struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
	DataURL string `json:"data_url"`
}

type WikipediaConfig struct {
	Lang             string `json:"lang"`
	DisableRateLimit bool   `json:"disable_rate_limit"`
	MinWaitMs        int    `json:"min_wait_ms"`
	APIURL           string `json:"api_url"`
}

type XConfig struct {
	BearerToken string `json:"bearer_token"`
	BaseURL     string `json:"base_url"`
}

type Config struct {
	Telemetry telemetry.Config `json:"telemetry"`
	GDELT     GDELTConfig      `json:"gdelt"`
	NOAA      NOAAConfig       `json:"noaa"`
	Wikipedia WikipediaConfig  `json:"wikipedia"`
	X         XConfig          `json:"x"`
}

var defaultConfig = Config{
	GDELT: GDELTConfig{DataLimitGB: budget.DefaultDataLimitGB},
	Wikipedia: WikipediaConfig{
		Lang:      wikipedia.DefaultLang,
		MinWaitMs: int(wikipedia.DefaultMinWait.Milliseconds()),
	},
}

// applyEnv overrides secrets with the environment variables that hold them.
func applyEnv(cfg Config, getenv func(string) string) Config {
	if v := getenv("NOAA_TOKEN"); v != "" {
		cfg.NOAA.Token = v
	}
	if v := getenv("X_BEARER_TOKEN"); v != "" {
		cfg.X.BearerToken = v
	}
	if v := getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.GDELT.CredentialsPath = v
	}
	return cfg
}

// loadConfig reads the config at path, or searches for signals.json5 from the working
// directory up when path is empty. A missing config is only an error if path was given.
func loadConfig(path string, getenv func(string) string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		cfg, err = configutil.ReadConfig[Config](path)
	} else {
		cfg, _, err = configutil.ReadRecursively[Config](defaultConfigName)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	}
	if err != nil {
		return Config{}, err
	}

	cfg = applyEnv(cfg, getenv)
	return configutil.WithDefaults(cfg, defaultConfig)
}
