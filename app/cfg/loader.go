package cfg

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Lemmy credentials
	InstanceURL string `long:"instance-url" env:"LEMMY_INSTANCE_URL" description:"Base URL of the Lemmy instance (e.g., https://lemmy.example.com)"`
	Username    string `long:"username" env:"LEMMY_USERNAME" description:"Lemmy username or email"`
	Password    string `long:"password" env:"LEMMY_PASSWORD" description:"Lemmy password"`

	// Bot configuration
	FeedsFile      string `long:"feeds" env:"FEEDS_FILE" default:"rss_feeds.yml" description:"Path to the feed subscriptions file"`
	KeywordsArg    string `long:"keywords" env:"KEYWORDS" description:"Comma-separated list of keywords to filter articles"`
	KeywordsFile   string `long:"keywords-file" env:"KEYWORDS_FILE" description:"Path to a file containing keywords, one per line"`
	Interval       int    `long:"interval" env:"INTERVAL" description:"Interval in minutes between feed checks (randomized 11-23 when unset)"`
	MaxPosts       int    `long:"max-posts" env:"MAX_POSTS" default:"2" description:"Maximum number of posts per cycle"`
	Simultaneously int    `long:"simultaneously" env:"SIMULTANEOUSLY" default:"1" description:"Number of posts per community per cycle"`
	MaxAgeHours    int    `long:"max-age" env:"MAX_AGE" default:"48" description:"Skip articles older than this many hours (0 disables the check)"`
	DBPath         string `long:"db-path" env:"DB_PATH" default:"./lemmy_bot.db" description:"Path to the SQLite database storing posted articles"`

	// HTTP status API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP status API port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the status API (optional)"`

	// Logging
	LogFile string `long:"log" env:"LOG_FILE" description:"Path to the rotating log file (console only when unset)"`
	Debug   bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	// Application metadata
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"Lemmy Feed Bot/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`

	// Modes
	TestMode    bool `long:"test" description:"Validate configuration and credentials, then exit"`
	ShowVersion bool `long:"version" description:"Print version and exit"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// Credentials may live in a .env file next to the binary; missing file is fine.
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		InstanceURL:    strings.TrimRight(raw.InstanceURL, "/"),
		Username:       raw.Username,
		Password:       raw.Password,
		FeedsFile:      raw.FeedsFile,
		KeywordsArg:    raw.KeywordsArg,
		KeywordsFile:   raw.KeywordsFile,
		Interval:       raw.Interval,
		MaxPosts:       raw.MaxPosts,
		Simultaneously: raw.Simultaneously,
		MaxAgeHours:    raw.MaxAgeHours,
		DBPath:         raw.DBPath,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		LogFile:        raw.LogFile,
		Debug:          raw.Debug,
		UserAgent:      raw.UserAgent,
		FetchTimeout:   raw.FetchTimeout,
		Version:        GetVersion(),
		TestMode:       raw.TestMode,
		ShowVersion:    raw.ShowVersion,
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// ValidateCredentials checks that all Lemmy credential fields are present.
// Called before any mode that talks to the instance.
func (c *Cfg) ValidateCredentials() error {
	if c.InstanceURL == "" || c.Username == "" || c.Password == "" {
		return fmt.Errorf("LEMMY_INSTANCE_URL, LEMMY_USERNAME and LEMMY_PASSWORD must be set (flags, environment or .env file)")
	}
	return nil
}
