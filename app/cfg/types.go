package cfg

type Cfg struct {
	// Application configuration
	SourcesDir   string
	Port         string
	DBPath       string
	CacheTTL     int
	FetchTimeout int
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
