// Package config holds the typed runtime configuration. Values come from
// command-line flags, the YAML config file, DSXLATE_* environment variables
// and a handful of well-known variables such as GEMINI_API_KEY and HF_TOKEN.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/dsxlate/internal/batch"
	"codeberg.org/snonux/dsxlate/internal/checkpoint"
	"codeberg.org/snonux/dsxlate/internal/dataset"
	"codeberg.org/snonux/dsxlate/internal/logger"
	"codeberg.org/snonux/dsxlate/internal/translation"
)

type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Translate  TranslateConfig  `mapstructure:"translate"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Run        RunConfig        `mapstructure:"run"`
	Output     OutputConfig     `mapstructure:"output"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Publish    PublishConfig    `mapstructure:"publish"`
	Log        LogConfig        `mapstructure:"log"`
}

type EngineConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	Breaker      bool          `mapstructure:"breaker"`
}

type TranslateConfig struct {
	SourceLanguage string   `mapstructure:"source_language"`
	TargetLanguage string   `mapstructure:"target_language"`
	Fields         []string `mapstructure:"fields"`
	FailurePolicy  string   `mapstructure:"failure_policy"`
}

type DatasetConfig struct {
	Provider string `mapstructure:"provider"`
	Name     string `mapstructure:"name"`
	Config   string `mapstructure:"config"`
	Split    string `mapstructure:"split"`
	Path     string `mapstructure:"path"`
	Table    string `mapstructure:"table"`
	BaseURL  string `mapstructure:"base_url"`
}

type RunConfig struct {
	StartIndex int `mapstructure:"start_index"`
	BatchSize  int `mapstructure:"batch_size"`
	NumSamples int `mapstructure:"num_samples"`
}

type OutputConfig struct {
	Directory     string `mapstructure:"directory"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
	FinalFilename string `mapstructure:"final_filename"`
}

type CheckpointConfig struct {
	Backend string   `mapstructure:"backend"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type PublishConfig struct {
	Target       string `mapstructure:"target"`
	PersonalRepo string `mapstructure:"personal_repo"`
	OrgRepo      string `mapstructure:"org_repo"`
	Private      bool   `mapstructure:"private"`
	Token        string `mapstructure:"token"`
	Endpoint     string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultFields are the columns of the FinQA reasoning dataset
var DefaultFields = []string{
	"Open-ended Verifiable Question",
	"Ground-True Answer",
	"Complex_CoT",
	"Response",
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine.provider", translation.ProviderGemini)
	v.SetDefault("engine.model", "")
	v.SetDefault("engine.base_url", "")
	v.SetDefault("engine.retries", translation.DefaultRetries)
	v.SetDefault("engine.retry_delay", translation.DefaultRetryDelay)
	v.SetDefault("engine.timeout", 2*time.Minute)
	v.SetDefault("engine.breaker", false)
	v.SetDefault("translate.source_language", translation.DefaultSourceLanguage)
	v.SetDefault("translate.target_language", translation.DefaultTargetLanguage)
	v.SetDefault("translate.fields", DefaultFields)
	v.SetDefault("translate.failure_policy", string(translation.PolicyDegrade))
	v.SetDefault("dataset.provider", dataset.ProviderHub)
	v.SetDefault("dataset.name", "TheFinAI/Fino1_Reasoning_Path_FinQA")
	v.SetDefault("dataset.config", "default")
	v.SetDefault("dataset.split", "train")
	v.SetDefault("dataset.path", "")
	v.SetDefault("dataset.table", "")
	v.SetDefault("dataset.base_url", "")
	v.SetDefault("run.start_index", 0)
	v.SetDefault("run.batch_size", 100)
	v.SetDefault("run.num_samples", 0)
	v.SetDefault("output.directory", "./translated_data")
	v.SetDefault("output.checkpoint_dir", "")
	v.SetDefault("output.final_filename", "finqa_arabic_complete.jsonl")
	v.SetDefault("checkpoint.backend", checkpoint.BackendLocal)
	v.SetDefault("checkpoint.s3.endpoint", "")
	v.SetDefault("checkpoint.s3.bucket", "")
	v.SetDefault("checkpoint.s3.prefix", "")
	v.SetDefault("checkpoint.s3.region", "")
	v.SetDefault("checkpoint.s3.use_ssl", true)
	v.SetDefault("publish.target", "personal")
	v.SetDefault("publish.private", false)
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// BindEnv maps the well-known environment variables onto their keys
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("DSXLATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("engine.gemini_api_key", "DSXLATE_ENGINE_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("engine.openai_api_key", "DSXLATE_ENGINE_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("publish.token", "DSXLATE_PUBLISH_TOKEN", "HF_TOKEN")
	_ = v.BindEnv("publish.target", "DSXLATE_PUBLISH_TARGET", "UPLOAD_TARGET")
	_ = v.BindEnv("publish.personal_repo", "DSXLATE_PUBLISH_PERSONAL_REPO", "PERSONAL_HUB_REPO_PATH")
	_ = v.BindEnv("publish.org_repo", "DSXLATE_PUBLISH_ORG_REPO", "ORG_HUB_REPO_PATH")
	_ = v.BindEnv("checkpoint.s3.access_key", "DSXLATE_CHECKPOINT_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("checkpoint.s3.secret_key", "DSXLATE_CHECKPOINT_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("log.level", "DSXLATE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "DSXLATE_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log.file", "DSXLATE_LOG_FILE", "LOG_FILE")
}

// Load builds the configuration from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Translate.Fields = splitFields(cfg.Translate.Fields)
	if cfg.Output.CheckpointDir == "" {
		cfg.Output.CheckpointDir = filepath.Join(cfg.Output.Directory, "checkpoints")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitFields accepts both list values and comma separated strings from the
// environment or flags
func splitFields(in []string) []string {
	var out []string
	for _, item := range in {
		for _, f := range strings.Split(item, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Run.BatchSize < 1 {
		return fmt.Errorf("%w: %d", batch.ErrInvalidBatchSize, c.Run.BatchSize)
	}
	if c.Run.StartIndex < 0 {
		return fmt.Errorf("%w: start index %d", batch.ErrInvalidRange, c.Run.StartIndex)
	}
	if c.Run.NumSamples < 0 {
		return fmt.Errorf("num_samples must not be negative: %d", c.Run.NumSamples)
	}
	if c.Engine.Retries < 1 {
		return fmt.Errorf("engine.retries must be at least 1: %d", c.Engine.Retries)
	}
	if c.Engine.RetryDelay < 0 {
		return fmt.Errorf("engine.retry_delay must not be negative: %s", c.Engine.RetryDelay)
	}
	if _, err := translation.ParsePolicy(c.Translate.FailurePolicy); err != nil {
		return err
	}
	switch c.Engine.Provider {
	case translation.ProviderGemini, translation.ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported engine provider: %s", c.Engine.Provider)
	}
	switch c.Checkpoint.Backend {
	case checkpoint.BackendLocal, checkpoint.BackendS3:
	default:
		return fmt.Errorf("unsupported checkpoint backend: %s", c.Checkpoint.Backend)
	}
	if c.Output.FinalFilename == "" {
		return fmt.Errorf("output.final_filename must not be empty")
	}
	return nil
}

// APIKey returns the key of the selected engine provider
func (c *Config) APIKey() string {
	if c.Engine.Provider == translation.ProviderOpenAI {
		return c.Engine.OpenAIAPIKey
	}
	return c.Engine.GeminiAPIKey
}

// LoggerConfig returns the logger settings
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	cfg.File = c.Log.File
	if c.Log.MaxSizeMB > 0 {
		cfg.MaxSizeMB = c.Log.MaxSizeMB
	}
	if c.Log.MaxBackups > 0 {
		cfg.MaxBackups = c.Log.MaxBackups
	}
	if c.Log.MaxAgeDays > 0 {
		cfg.MaxAgeDays = c.Log.MaxAgeDays
	}
	return cfg
}

// FinalPath returns the path of the consolidated file
func (c *Config) FinalPath() string {
	return filepath.Join(c.Output.Directory, c.Output.FinalFilename)
}

// EngineSettings returns the engine settings
func (c *Config) EngineSettings() translation.EngineConfig {
	return translation.EngineConfig{
		Provider: c.Engine.Provider,
		APIKey:   c.APIKey(),
		Model:    c.Engine.Model,
		BaseURL:  c.Engine.BaseURL,
		Timeout:  c.Engine.Timeout,
		Breaker:  c.Engine.Breaker,
	}
}

// TranslationOptions returns the field translator settings
func (c *Config) TranslationOptions() translation.Options {
	policy, _ := translation.ParsePolicy(c.Translate.FailurePolicy)
	return translation.Options{
		Retries: c.Engine.Retries,
		Delay:   c.Engine.RetryDelay,
		Policy:  policy,
		Prompt: translation.Prompt{
			SourceLanguage: c.Translate.SourceLanguage,
			TargetLanguage: c.Translate.TargetLanguage,
		},
	}
}

// DatasetSettings returns the dataset provider settings
func (c *Config) DatasetSettings() dataset.Config {
	return dataset.Config{
		Provider: c.Dataset.Provider,
		Name:     c.Dataset.Name,
		Config:   c.Dataset.Config,
		Split:    c.Dataset.Split,
		Path:     c.Dataset.Path,
		Table:    c.Dataset.Table,
		Token:    c.Publish.Token,
		BaseURL:  c.Dataset.BaseURL,
	}
}

// CheckpointSettings returns the checkpoint store settings
func (c *Config) CheckpointSettings() checkpoint.Config {
	s3 := c.Checkpoint.S3
	return checkpoint.Config{
		Backend: c.Checkpoint.Backend,
		Dir:     c.Output.CheckpointDir,
		S3: checkpoint.S3Config{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			Prefix:    s3.Prefix,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			UseSSL:    s3.UseSSL,
		},
	}
}
