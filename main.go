package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sibusten/derpibooru-archive-scraper/ArchiveScraper"
	"github.com/Sibusten/derpibooru-archive-scraper/Database"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errIncomplete = errors.New("some images could not be downloaded")

type Options struct {
	ConfigPath string
	Config     *Database.Config
	Tag        string

	connectionString string
	archiveURL       string
	downloadDir      string
	strictMatch      bool
	timeout          time.Duration
	meiliHost        string
	meiliKey         string
	redisAddr        string
	logLevel         string
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&Options{})
}

func newRootCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derpibooru-archive-scraper [tag]",
		Short: "Download every archived image of a Derpibooru tag",
		Long: `Looks up all images carrying a tag in a local Derpibooru database,
finds each of them on the archive mirror and downloads it together with
a JSON file listing its tags. The tag is prompted for when not given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(cmd)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a YAML configuration file")
	fs.StringVar(&o.connectionString, "connection", Database.DefaultConnectionString, "Postgres connection string of the catalog")
	fs.StringVar(&o.archiveURL, "archive-url", Database.DefaultArchiveBaseURL, "Base URL of the archive mirror")
	fs.StringVar(&o.downloadDir, "download-dir", Database.DefaultDownloadDir, "Directory downloads are written to")
	fs.BoolVar(&o.strictMatch, "strict-match", false, "Only accept listing entries where the id is not followed by another digit")
	fs.DurationVar(&o.timeout, "timeout", Database.DefaultRequestTimeout, "Timeout for each archive request")
	fs.StringVar(&o.meiliHost, "meili-host", "", "Meilisearch host to index downloaded images into")
	fs.StringVar(&o.meiliKey, "meili-key", "", "Meilisearch API key")
	fs.StringVar(&o.redisAddr, "redis-addr", "", "Redis address to publish missing image ids to")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	return cmd
}

// Complete loads the config file, applies explicitly set flags on top and
// reads the tag from the arguments or the prompt.
func (o *Options) Complete(cmd *cobra.Command, args []string) error {
	config, err := Database.LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("connection") {
		config.ConnectionString = o.connectionString
	}
	if flags.Changed("archive-url") {
		config.ArchiveBaseURL = o.archiveURL
	}
	if flags.Changed("download-dir") {
		config.DownloadDir = o.downloadDir
	}
	if flags.Changed("strict-match") {
		config.StrictNameMatch = o.strictMatch
	}
	if flags.Changed("timeout") {
		config.RequestTimeout = o.timeout
	}
	if flags.Changed("meili-host") {
		config.MeiliHost = o.meiliHost
	}
	if flags.Changed("meili-key") {
		config.MeiliAPIKey = o.meiliKey
	}
	if flags.Changed("redis-addr") {
		config.RedisAddr = o.redisAddr
	}
	if flags.Changed("log-level") {
		config.LogLevel = o.logLevel
	}
	o.Config = config

	if len(args) == 1 {
		o.Tag = args[0]
	} else {
		o.Tag, err = promptTag(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	return nil
}

func (o *Options) Validate() error {
	if o.Tag == "" {
		return errors.New("no search tag given")
	}
	return o.Config.Validate()
}

func (o *Options) Run(cmd *cobra.Command) error {
	level, _ := log.ParseLevel(o.Config.LogLevel)
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Connecting...")
	pool, err := Database.ConnectPostgres(ctx, o.Config.ConnectionString)
	if err != nil {
		return err
	}
	defer pool.Close()

	archive, err := ArchiveScraper.NewArchive(o.Config.ArchiveBase(), o.Config.UserAgent, o.Config.RequestTimeout)
	if err != nil {
		return err
	}
	archive.StrictNameMatch = o.Config.StrictNameMatch

	scraper := &Scraper{
		Catalog:     Database.NewCatalog(pool),
		Archive:     archive,
		Fs:          afero.NewOsFs(),
		DownloadDir: o.Config.DownloadDir,
		JSONDir:     o.Config.JSONDir,
		Progress:    cmd.ErrOrStderr(),
	}

	if o.Config.MeiliHost != "" {
		meiliClient, err := Database.ConnectMeilisearch(o.Config.MeiliHost, o.Config.MeiliAPIKey)
		if err != nil {
			return err
		}
		index := Database.NewImageIndex(meiliClient, o.Config.MeiliIndex)
		if err := index.Ensure(ctx); err != nil {
			return err
		}
		scraper.Index = index
	}

	if o.Config.RedisAddr != "" {
		redisClient, err := Database.ConnectRedis(ctx, o.Config.RedisAddr, o.Config.RedisPassword, o.Config.RedisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		scraper.Missing = Database.NewMissingQueue(redisClient, o.Config.RedisKeyPrefix)
	}

	result, err := scraper.Run(ctx, o.Tag)
	if err != nil {
		return err
	}
	if result.Incomplete() {
		return errIncomplete
	}
	return nil
}

func promptTag(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter search tag: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrap(err, "reading search tag")
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func main() {
	err := NewRootCmd().ExecuteContext(context.Background())
	if errors.Is(err, errIncomplete) {
		log.Warn(err)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
