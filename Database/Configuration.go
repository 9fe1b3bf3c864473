package Database

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConnectionString = "host=localhost port=5432 user=postgres password=password dbname=derpibooru"
	DefaultArchiveBaseURL   = "https://theponyarchive.com/archive/derpibooru/"
	DefaultDownloadDir      = "Downloads"
	DefaultJSONDir          = "Json"
	DefaultUserAgent        = "DerpibooruArchiveScraper"
	DefaultRequestTimeout   = 2 * time.Minute
	DefaultMeiliIndex       = "images"
	DefaultRedisKeyPrefix   = "derpiarchive"
)

// Config holds everything a run needs. Zero values for the Meili and Redis
// settings disable those integrations.
type Config struct {
	ConnectionString string        `yaml:"connectionString"`
	ArchiveBaseURL   string        `yaml:"archiveBaseURL"`
	DownloadDir      string        `yaml:"downloadDir"`
	JSONDir          string        `yaml:"jsonDir"`
	UserAgent        string        `yaml:"userAgent"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
	StrictNameMatch  bool          `yaml:"strictNameMatch"`
	LogLevel         string        `yaml:"logLevel"`

	MeiliHost   string `yaml:"meiliHost"`
	MeiliAPIKey string `yaml:"meiliAPIKey"`
	MeiliIndex  string `yaml:"meiliIndex"`

	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisDB        int    `yaml:"redisDB"`
	RedisKeyPrefix string `yaml:"redisKeyPrefix"`
}

func DefaultConfig() *Config {
	return &Config{
		ConnectionString: DefaultConnectionString,
		ArchiveBaseURL:   DefaultArchiveBaseURL,
		DownloadDir:      DefaultDownloadDir,
		JSONDir:          DefaultJSONDir,
		UserAgent:        DefaultUserAgent,
		RequestTimeout:   DefaultRequestTimeout,
		LogLevel:         "info",
		MeiliIndex:       DefaultMeiliIndex,
		RedisKeyPrefix:   DefaultRedisKeyPrefix,
	}
}

// LoadConfig returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	log.Debug("Loaded configuration from ", path)
	return config, nil
}

func (c *Config) Validate() error {
	if c.ConnectionString == "" {
		return errors.New("connection string not set")
	}
	if c.DownloadDir == "" {
		return errors.New("download directory not set")
	}
	if c.JSONDir == "" {
		return errors.New("json directory not set")
	}
	if c.RequestTimeout < 0 {
		return errors.Errorf("invalid request timeout %s", c.RequestTimeout)
	}

	base, err := url.Parse(c.ArchiveBaseURL)
	if err != nil {
		return errors.Wrap(err, "invalid archive base URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return errors.Errorf("archive base URL %q must be http or https", c.ArchiveBaseURL)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	if c.MeiliHost != "" && c.MeiliIndex == "" {
		return errors.New("meilisearch host set without an index name")
	}

	return nil
}

// ArchiveBase returns the archive base URL with exactly one trailing slash.
func (c *Config) ArchiveBase() string {
	return strings.TrimRight(c.ArchiveBaseURL, "/") + "/"
}
