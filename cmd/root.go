package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/ledger"
	"github.com/spigell/job-tracker/internal/logger"
	"github.com/spigell/job-tracker/internal/storage"
)

const (
	app       = "job-tracker"
	envPrefix = "JOB_TRACKER"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Source    SourceConfig    `mapstructure:"source"`
	Search    SearchConfig    `mapstructure:"search"`
	AutoApply AutoApplyConfig `mapstructure:"auto-apply"`
	Exclude   ExcludeConfig   `mapstructure:"exclude"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	AI        *AIConfig       `mapstructure:"ai"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type SourceConfig struct {
	Kind         string        `mapstructure:"kind" validate:"oneof=generator file"`
	File         string        `mapstructure:"file" validate:"required_if=Kind file"`
	Seed         int64         `mapstructure:"seed"`
	Delay        time.Duration `mapstructure:"delay" validate:"gte=0"`
	FetchTimeout time.Duration `mapstructure:"fetch-timeout" validate:"gte=0"`
}

type SearchConfig struct {
	Keywords  string   `mapstructure:"keywords"`
	Location  string   `mapstructure:"location"`
	Platforms []string `mapstructure:"platforms" validate:"min=1,dive,required"`
	Limit     int      `mapstructure:"limit" validate:"gt=0"`
	Workers   int      `mapstructure:"workers" validate:"gte=0"`
}

type AutoApplyConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	MinMatchScore        float64 `mapstructure:"min-match-score" validate:"gte=0,lte=100"`
	MaxDailyApplications int     `mapstructure:"max-daily-applications" validate:"gte=0"`
}

type ExcludeConfig struct {
	Companies []string `mapstructure:"companies"`
	File      string   `mapstructure:"file"`
}

type SummaryConfig struct {
	WindowDays int `mapstructure:"window-days" validate:"gte=0"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider" validate:"omitempty,eq=gemini"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "job-tracker finds job postings, ranks them against your profile and keeps track of your applications",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-tracker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("db", "", "path to the sqlite database")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "data/job-tracker.db")
	v.SetDefault("source.kind", "generator")
	v.SetDefault("source.fetch-timeout", 30*time.Second)
	v.SetDefault("search.platforms", []string{"LinkedIn", "Indeed", "Glassdoor"})
	v.SetDefault("search.limit", 20)
	v.SetDefault("search.workers", 4)
	v.SetDefault("auto-apply.min-match-score", 70.0)
	v.SetDefault("auto-apply.max-daily-applications", 10)
	v.SetDefault("summary.window-days", 7)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.max-log-length", 200)
}

func initConfig() {
	// A missing .env is fine; the variables may come from the environment itself.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Only an explicitly requested config file is mandatory.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// env bundles what every command needs.
type env struct {
	config *Config
	logger *zap.Logger
	store  *storage.Store
	ledger *ledger.Ledger
}

func newEnv() (*env, error) {
	outputs := []string{"stdout"}
	if file := strings.TrimSpace(viper.GetString("log-file")); file != "" {
		outputs = append(outputs, file)
	}

	log, err := logger.Build(logger.Options{
		JSON:        viper.GetBool("json"),
		Debug:       viper.GetBool("debug"),
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(config.Database.Path, storage.Options{Debug: viper.GetBool("debug")})
	if err != nil {
		return nil, err
	}

	return &env{
		config: config,
		logger: log,
		store:  store,
		ledger: ledger.New(store, log),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing the database", zap.Error(err))
	}
	_ = e.logger.Sync()
}
