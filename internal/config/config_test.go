package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/dsxlate/internal/batch"
	"codeberg.org/snonux/dsxlate/internal/translation"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Engine.Provider", cfg.Engine.Provider, "gemini"},
		{"Engine.Retries", cfg.Engine.Retries, 3},
		{"Engine.RetryDelay", cfg.Engine.RetryDelay, 5 * time.Second},
		{"Run.BatchSize", cfg.Run.BatchSize, 100},
		{"Run.StartIndex", cfg.Run.StartIndex, 0},
		{"Output.Directory", cfg.Output.Directory, "./translated_data"},
		{"Output.CheckpointDir", cfg.Output.CheckpointDir, filepath.Join("./translated_data", "checkpoints")},
		{"Translate.Fields", cfg.Translate.Fields, DefaultFields},
		{"Translate.FailurePolicy", cfg.Translate.FailurePolicy, "degrade"},
		{"Checkpoint.Backend", cfg.Checkpoint.Backend, "local"},
		{"Publish.Target", cfg.Publish.Target, "personal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dsxlate.yaml")
	content := `engine:
  provider: openai
  retries: 5
  retry_delay: 250ms
translate:
  fields: [question, answer]
  failure_policy: halt
run:
  start_index: 4000
  batch_size: 50
output:
  directory: /data/out
  checkpoint_dir: /data/ckpt
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := newViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engine.Provider != "openai" || cfg.Engine.Retries != 5 || cfg.Engine.RetryDelay != 250*time.Millisecond {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if !reflect.DeepEqual(cfg.Translate.Fields, []string{"question", "answer"}) {
		t.Errorf("fields = %v", cfg.Translate.Fields)
	}
	if cfg.Run.StartIndex != 4000 || cfg.Run.BatchSize != 50 {
		t.Errorf("run = %+v", cfg.Run)
	}
	if cfg.Output.CheckpointDir != "/data/ckpt" {
		t.Errorf("checkpoint dir = %s", cfg.Output.CheckpointDir)
	}
	if cfg.FinalPath() != filepath.Join("/data/out", "finqa_arabic_complete.jsonl") {
		t.Errorf("final path = %s", cfg.FinalPath())
	}
	if cfg.TranslationOptions().Policy != translation.PolicyHalt {
		t.Errorf("policy = %s", cfg.TranslationOptions().Policy)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")
	t.Setenv("HF_TOKEN", "hf_token")
	t.Setenv("UPLOAD_TARGET", "organization")
	t.Setenv("ORG_HUB_REPO_PATH", "org/data")
	t.Setenv("DSXLATE_RUN_BATCH_SIZE", "25")
	t.Setenv("DSXLATE_TRANSLATE_FIELDS", "a, b,c")
	t.Setenv("DSXLATE_DATASET_PATH", "/tmp/in.jsonl")

	cfg, err := Load(newViper(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIKey() != "gem-key" {
		t.Errorf("APIKey = %s", cfg.APIKey())
	}
	cfg.Engine.Provider = translation.ProviderOpenAI
	if cfg.APIKey() != "oai-key" {
		t.Errorf("APIKey = %s", cfg.APIKey())
	}
	if cfg.Publish.Token != "hf_token" || cfg.Publish.Target != "organization" || cfg.Publish.OrgRepo != "org/data" {
		t.Errorf("publish = %+v", cfg.Publish)
	}
	if cfg.Run.BatchSize != 25 {
		t.Errorf("batch size = %d", cfg.Run.BatchSize)
	}
	if !reflect.DeepEqual(cfg.Translate.Fields, []string{"a", "b", "c"}) {
		t.Errorf("fields = %v", cfg.Translate.Fields)
	}
	if cfg.Dataset.Path != "/tmp/in.jsonl" {
		t.Errorf("dataset path = %s", cfg.Dataset.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"zero batch size", func(c *Config) { c.Run.BatchSize = 0 }, batch.ErrInvalidBatchSize},
		{"negative start", func(c *Config) { c.Run.StartIndex = -1 }, batch.ErrInvalidRange},
		{"negative samples", func(c *Config) { c.Run.NumSamples = -1 }, nil},
		{"zero retries", func(c *Config) { c.Engine.Retries = 0 }, nil},
		{"bad policy", func(c *Config) { c.Translate.FailurePolicy = "ignore" }, nil},
		{"bad provider", func(c *Config) { c.Engine.Provider = "claude" }, nil},
		{"bad backend", func(c *Config) { c.Checkpoint.Backend = "ftp" }, nil},
		{"no final filename", func(c *Config) { c.Output.FinalFilename = "" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(newViper(t))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSettings(t *testing.T) {
	t.Setenv("HF_TOKEN", "hf_token")
	cfg, err := Load(newViper(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ds := cfg.DatasetSettings()
	if ds.Name != "TheFinAI/Fino1_Reasoning_Path_FinQA" || ds.Split != "train" || ds.Token != "hf_token" {
		t.Errorf("dataset settings = %+v", ds)
	}
	cp := cfg.CheckpointSettings()
	if cp.Dir != cfg.Output.CheckpointDir || !cp.S3.UseSSL {
		t.Errorf("checkpoint settings = %+v", cp)
	}
	if lc := cfg.LoggerConfig(); lc.Level != "info" || lc.ServiceName != "dsxlate" {
		t.Errorf("logger config = %+v", lc)
	}
}
