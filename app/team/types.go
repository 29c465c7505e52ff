package team

// Config describes one tracked Premier League club. Each team has its own
// YAML file in the teams directory; the team ID is derived from the filename.
type Config struct {
	ID       string         // Derived from filename (without .yml extension)
	Name     string         `yaml:"name"`
	Aliases  []string       `yaml:"aliases"` // Name variations used to match posts, e.g. "Man City", "MCFC"
	Sources  ConfigSources  `yaml:"sources"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSources struct {
	Subreddit   string `yaml:"subreddit"`    // e.g. "MCFC" for r/MCFC
	MirrorQuery string `yaml:"mirror_query"` // Search query for the Twitter mirror, defaults to the team name
}

type ConfigSettings struct {
	Enabled bool `yaml:"enabled"`
}
