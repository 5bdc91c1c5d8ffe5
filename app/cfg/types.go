package cfg

type Cfg struct {
	// Lemmy credentials
	InstanceURL string
	Username    string
	Password    string

	// Bot configuration
	FeedsFile      string
	KeywordsArg    string
	KeywordsFile   string
	Interval       int // minutes, 0 = randomized per cycle
	MaxPosts       int
	Simultaneously int
	MaxAgeHours    int
	DBPath         string

	// HTTP status API
	Port         string
	APIAccessKey string

	// Logging
	LogFile string
	Debug   bool

	// Application metadata
	UserAgent    string
	FetchTimeout int // seconds
	Version      string

	// Modes
	TestMode    bool
	ShowVersion bool
}
