package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"webbot/internal/entity"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	WaitConfig    *WaitConfig
	BotConfig     *BotConfig
}

type AppConfig struct {
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	Debug            bool   `envconfig:"DEBUG" default:"false"`
	LogToFile        bool   `envconfig:"LOG_TO_FILE" default:"false"`
	LogDir           string `envconfig:"LOG_DIR" default:"logs"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`
}

type BrowserConfig struct {
	Kind           string `envconfig:"BROWSER_KIND" default:"chrome"`
	Headless       bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	Incognito      bool   `envconfig:"BROWSER_INCOGNITO" default:"false"`
	DownloadDir    string `envconfig:"BROWSER_DOWNLOAD_DIR" default:""`
	DisableImages  bool   `envconfig:"BROWSER_DISABLE_IMAGES" default:"false"`
	Remote         bool   `envconfig:"BROWSER_REMOTE" default:"false"`
	RemoteEndpoint string `envconfig:"BROWSER_REMOTE_ENDPOINT" default:"http://localhost:4444/wd/hub"`
	RemoteVersion  string `envconfig:"BROWSER_REMOTE_VERSION" default:"121.0"`
	UserDataDir    string `envconfig:"BROWSER_USER_DATA_DIR" default:"./appdata"`
	Install        bool   `envconfig:"BROWSER_INSTALL" default:"true"`
}

type WaitConfig struct {
	PollInterval time.Duration `envconfig:"WAIT_POLL_INTERVAL" default:"200ms"`
}

type BotConfig struct {
	ConfigPath string        `envconfig:"BOT_CONFIG_PATH" default:"config/config.yaml"`
	StartURL   string        `envconfig:"BOT_START_URL" default:""`
	StartSleep time.Duration `envconfig:"BOT_START_SLEEP" default:"0s"`
	Console    bool          `envconfig:"BOT_CONSOLE" default:"true"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}

// SessionOptions translates the browser settings into the provider's
// declarative options.
func (c *BrowserConfig) SessionOptions() (entity.SessionOptions, error) {
	kind, err := entity.ParseBrowserKind(c.Kind)
	if err != nil {
		return entity.SessionOptions{}, fmt.Errorf("BROWSER_KIND: %w", err)
	}

	return entity.SessionOptions{
		Browser:              kind,
		Headless:             c.Headless,
		Incognito:            c.Incognito,
		DownloadDir:          c.DownloadDir,
		DisableImages:        c.DisableImages,
		Remote:               c.Remote,
		RemoteEndpoint:       c.RemoteEndpoint,
		RemoteBrowserVersion: c.RemoteVersion,
		UserDataDir:          c.UserDataDir,
		Install:              c.Install,
	}, nil
}
