package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/snonux/dsxlate/internal"
	"codeberg.org/snonux/dsxlate/internal/config"
)

// Action runs one subcommand
type Action func(ctx context.Context, flags *Flags) error

// Actions holds the implementation of every subcommand
type Actions struct {
	Translate   Action
	Consolidate Action
	Publish     Action
	Models      Action
	Archive     Action
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, actions Actions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dsxlate",
		Short: "Batched, checkpointed dataset translation",
		Long: `dsxlate translates text fields of a dataset with a generative model.

Records are processed in fixed-size batches. Every finished batch is saved as a
checkpoint file, so an interrupted run resumes with the first missing batch.
The checkpoints are finally merged into one JSON Lines file that can be
published to the Hugging Face Hub.

Examples:
  dsxlate translate                            # Translate the configured dataset
  dsxlate translate --start-index 4000 -n 500  # Translate records 4000-4499
  dsxlate consolidate                          # Rebuild the final file from checkpoints
  dsxlate publish --repo-name me/finqa-arabic  # Upload the final file
  dsxlate archive                              # Move checkpoints away for a fresh run`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newTranslateCommand(flags, actions.Translate),
		newConsolidateCommand(flags, actions.Consolidate),
		newPublishCommand(flags, actions.Publish),
		newModelsCommand(flags, actions.Models),
		newArchiveCommand(flags, actions.Archive),
	)

	return rootCmd
}

func runAction(flags *Flags, action Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if action == nil {
			return fmt.Errorf("command %s is not available", cmd.Name())
		}
		return action(cmd.Context(), flags)
	}
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.dsxlate.yaml or ./.dsxlate.yaml)")
	pf.StringVar(&flags.EnvFile, "env-file", flags.EnvFile, "dotenv file to load before reading the environment")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text or json")
	pf.StringVar(&flags.LogFile, "log-file", "", "Also write logs to this file (rotated)")
	pf.StringVarP(&flags.OutputDir, "output", "o", flags.OutputDir, "Output directory")
	pf.StringVar(&flags.CheckpointDir, "checkpoint-dir", "", "Checkpoint directory (default is <output>/checkpoints)")
	pf.StringVar(&flags.FinalFilename, "final-filename", flags.FinalFilename, "Name of the consolidated file inside the output directory")
	pf.StringVar(&flags.CheckpointBackend, "checkpoint-backend", flags.CheckpointBackend, "Checkpoint storage: local or s3")
	pf.StringVar(&flags.Provider, "provider", flags.Provider, "Translation engine: gemini or openai")
	pf.StringVarP(&flags.Model, "model", "m", "", "Engine model (default depends on the provider)")

	bindFlagsToViper(pf, map[string]string{
		"log.level":             "log-level",
		"log.format":            "log-format",
		"log.file":              "log-file",
		"output.directory":      "output",
		"output.checkpoint_dir": "checkpoint-dir",
		"output.final_filename": "final-filename",
		"checkpoint.backend":    "checkpoint-backend",
		"engine.provider":       "provider",
		"engine.model":          "model",
	})
}

func newTranslateCommand(flags *Flags, action Action) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate the dataset batch by batch and consolidate the result",
		Args:  cobra.NoArgs,
		RunE:  runAction(flags, action),
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Dataset, "dataset", "d", flags.Dataset, "Hugging Face dataset id")
	f.StringVar(&flags.DatasetProvider, "dataset-provider", flags.DatasetProvider, "Dataset source: hub, jsonl or sqlite")
	f.StringVar(&flags.DatasetConfig, "dataset-config", flags.DatasetConfig, "Hugging Face dataset config")
	f.StringVar(&flags.Split, "split", flags.Split, "Hugging Face dataset split")
	f.StringVar(&flags.DatasetPath, "dataset-path", "", "Path of a jsonl file or sqlite database")
	f.StringVar(&flags.Table, "table", "", "SQLite table")
	f.IntVar(&flags.StartIndex, "start-index", 0, "Index of the first record to translate")
	f.IntVarP(&flags.BatchSize, "batch-size", "b", flags.BatchSize, "Records per checkpoint")
	f.IntVarP(&flags.NumSamples, "num-samples", "n", 0, "Translate at most this many records (0 = all)")
	f.StringSliceVar(&flags.Fields, "fields", flags.Fields, "Fields to translate")
	f.StringVar(&flags.SourceLanguage, "source-lang", flags.SourceLanguage, "Source language name used in the prompt")
	f.StringVar(&flags.TargetLanguage, "target-lang", flags.TargetLanguage, "Target language name used in the prompt")
	f.IntVar(&flags.Retries, "retries", flags.Retries, "Attempts per field on transient errors")
	f.DurationVar(&flags.RetryDelay, "retry-delay", flags.RetryDelay, "Pause between attempts")
	f.StringVar(&flags.FailurePolicy, "failure-policy", flags.FailurePolicy, "On field failure: degrade (write placeholder) or halt (stop the run)")
	f.BoolVar(&flags.Breaker, "breaker", false, "Stop calling the engine for a while after repeated transient errors")
	f.BoolVar(&flags.SkipConsolidate, "skip-consolidate", false, "Only write checkpoints")

	bindFlagsToViper(f, map[string]string{
		"dataset.name":              "dataset",
		"dataset.provider":          "dataset-provider",
		"dataset.config":            "dataset-config",
		"dataset.split":             "split",
		"dataset.path":              "dataset-path",
		"dataset.table":             "table",
		"run.start_index":           "start-index",
		"run.batch_size":            "batch-size",
		"run.num_samples":           "num-samples",
		"translate.fields":          "fields",
		"translate.source_language": "source-lang",
		"translate.target_language": "target-lang",
		"engine.retries":            "retries",
		"engine.retry_delay":        "retry-delay",
		"translate.failure_policy":  "failure-policy",
		"engine.breaker":            "breaker",
	})
	return cmd
}

func newConsolidateCommand(flags *Flags, action Action) *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate",
		Short: "Merge all checkpoints into the final file",
		Args:  cobra.NoArgs,
		RunE:  runAction(flags, action),
	}
}

func newPublishCommand(flags *Flags, action Action) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the final file to a Hugging Face dataset repository",
		Long: `Upload the final file as the train split of a Hugging Face dataset.

The repository is taken from --repo-name. Without it, UPLOAD_TARGET selects
PERSONAL_HUB_REPO_PATH (personal, the default) or ORG_HUB_REPO_PATH
(organization). The token is read from HF_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: runAction(flags, action),
	}

	f := cmd.Flags()
	f.StringVar(&flags.FilePath, "file-path", "", "File to upload (default is <output>/<final-filename>)")
	f.StringVar(&flags.RepoName, "repo-name", "", "Override the repository, e.g. user/dataset")
	f.StringVar(&flags.Target, "target", flags.Target, "Upload target: personal or organization")
	f.BoolVar(&flags.Private, "private", false, "Create the repository as private")

	bindFlagsToViper(f, map[string]string{
		"publish.target":  "target",
		"publish.private": "private",
	})
	return cmd
}

func newModelsCommand(flags *Flags, action Action) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available to the configured engine",
		Args:  cobra.NoArgs,
		RunE:  runAction(flags, action),
	}
}

func newArchiveCommand(flags *Flags, action Action) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Move the checkpoint directory to <output>/archive to start over",
		Args:  cobra.NoArgs,
		RunE:  runAction(flags, action),
	}
}

func bindFlagsToViper(set *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = viper.BindPFlag(key, set.Lookup(name))
	}
}

// InitConfig loads the dotenv file and the config file into viper
func InitConfig(cfgFile, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".dsxlate")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	return nil
}

// LoadConfig returns the typed configuration from viper
func LoadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}
