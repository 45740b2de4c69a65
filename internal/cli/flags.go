package cli

import (
	"time"

	"codeberg.org/snonux/dsxlate/internal/config"
	"codeberg.org/snonux/dsxlate/internal/translation"
)

// Flags holds all command-line flag values
type Flags struct {
	// Global flags
	CfgFile           string
	EnvFile           string
	LogLevel          string
	LogFormat         string
	LogFile           string
	OutputDir         string
	CheckpointDir     string
	FinalFilename     string
	CheckpointBackend string
	Provider          string
	Model             string

	// translate flags
	Dataset         string
	DatasetProvider string
	DatasetConfig   string
	Split           string
	DatasetPath     string
	Table           string
	StartIndex      int
	BatchSize       int
	NumSamples      int
	Fields          []string
	SourceLanguage  string
	TargetLanguage  string
	Retries         int
	RetryDelay      time.Duration
	FailurePolicy   string
	Breaker         bool
	SkipConsolidate bool

	// publish flags
	FilePath string
	RepoName string
	Target   string
	Private  bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		EnvFile:           ".env",
		LogLevel:          "info",
		LogFormat:         "text",
		OutputDir:         "./translated_data",
		FinalFilename:     "finqa_arabic_complete.jsonl",
		CheckpointBackend: "local",
		Provider:          translation.ProviderGemini,
		Dataset:           "TheFinAI/Fino1_Reasoning_Path_FinQA",
		DatasetProvider:   "hub",
		DatasetConfig:     "default",
		Split:             "train",
		BatchSize:         100,
		Fields:            append([]string(nil), config.DefaultFields...),
		SourceLanguage:    translation.DefaultSourceLanguage,
		TargetLanguage:    translation.DefaultTargetLanguage,
		Retries:           translation.DefaultRetries,
		RetryDelay:        translation.DefaultRetryDelay,
		FailurePolicy:     string(translation.PolicyDegrade),
		Target:            "personal",
	}
}
