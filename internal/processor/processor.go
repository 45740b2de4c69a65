package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"codeberg.org/snonux/dsxlate/internal/archive"
	"codeberg.org/snonux/dsxlate/internal/batch"
	"codeberg.org/snonux/dsxlate/internal/checkpoint"
	"codeberg.org/snonux/dsxlate/internal/config"
	"codeberg.org/snonux/dsxlate/internal/consolidate"
	"codeberg.org/snonux/dsxlate/internal/dataset"
	"codeberg.org/snonux/dsxlate/internal/logger"
	"codeberg.org/snonux/dsxlate/internal/models"
	"codeberg.org/snonux/dsxlate/internal/publish"
	"codeberg.org/snonux/dsxlate/internal/translation"
)

// Processor runs the dsxlate operations for one configuration
type Processor struct {
	cfg   *config.Config
	out   io.Writer
	runID string

	newEngine   func(ctx context.Context, cfg translation.EngineConfig) (translation.Engine, error)
	newProvider func(cfg dataset.Config) (dataset.Provider, error)
	newStore    func(ctx context.Context, cfg checkpoint.Config) (checkpoint.Store, error)
}

// NewProcessor creates a processor for cfg. Every processor gets its own
// run id which is attached to all log entries.
func NewProcessor(cfg *config.Config) *Processor {
	return &Processor{
		cfg:         cfg,
		out:         os.Stdout,
		runID:       uuid.NewString(),
		newEngine:   translation.NewEngine,
		newProvider: dataset.New,
		newStore:    checkpoint.New,
	}
}

// SetOutput redirects the user facing summaries
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// RunID returns the id attached to the log entries of this processor
func (p *Processor) RunID() string {
	return p.runID
}

func (p *Processor) context(ctx context.Context, component string) context.Context {
	ctx = logger.SetRunID(ctx, p.runID)
	return logger.SetComponent(ctx, component)
}

// Translate translates the configured record range batch by batch and,
// unless skipConsolidate is set, merges all checkpoints into the final file
func (p *Processor) Translate(ctx context.Context, skipConsolidate bool) error {
	ctx = p.context(ctx, "translate")
	log := logger.FromContext(ctx)

	engine, err := p.newEngine(ctx, p.cfg.EngineSettings())
	if err != nil {
		return fmt.Errorf("failed to create translation engine: %w", err)
	}

	provider, err := p.newProvider(p.cfg.DatasetSettings())
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer closeProvider(ctx, provider)

	store, err := p.newStore(ctx, p.cfg.CheckpointSettings())
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	length, err := provider.Len(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	start := p.cfg.Run.StartIndex
	end, err := batch.EndIndex(length, start, p.cfg.Run.NumSamples)
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		logger.FieldCount:      length,
		logger.FieldBatchStart: start,
		logger.FieldBatchEnd:   end,
	}).Infof("Dataset loaded, translating records %d to %d", start, end)

	field := translation.NewFieldTranslator(engine, p.cfg.TranslationOptions())
	runner := batch.NewRunner(translation.NewRecordTranslator(field, p.cfg.Translate.Fields), store)

	summary, runErr := runner.Run(ctx, provider, start, end, p.cfg.Run.BatchSize)
	p.printSummary(start, end, summary, field.Stats())
	if runErr != nil {
		return runErr
	}

	if skipConsolidate {
		fmt.Fprintf(p.out, "\nCheckpoints saved to: %s\n", store.Location())
		return nil
	}

	result, err := p.consolidate(ctx, store)
	if errors.Is(err, consolidate.ErrNoCheckpoints) {
		fmt.Fprintf(p.out, "\nNo checkpoints to consolidate in %s\n", store.Location())
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "\nDone! Translated dataset saved to: %s\n", result.Path)
	fmt.Fprintf(p.out, "Upload it with: dsxlate publish --file-path %s\n", result.Path)
	return nil
}

func (p *Processor) printSummary(start, end int, summary batch.Summary, stats translation.Stats) {
	fmt.Fprintf(p.out, "\n=== Translation Summary ===\n")
	fmt.Fprintf(p.out, "Records: %d-%d\n", start, end)
	fmt.Fprintf(p.out, "Batches planned: %d\n", summary.Planned)
	fmt.Fprintf(p.out, "Processed: %d\n", summary.Processed)
	fmt.Fprintf(p.out, "Skipped (checkpoint exists): %d\n", summary.Skipped)
	fmt.Fprintf(p.out, "Records translated: %d\n", summary.Records)
	fmt.Fprintf(p.out, "Engine calls: %d\n", stats.Calls)
	if summary.Placeholders > 0 {
		fmt.Fprintf(p.out, "Placeholders: %d\n", summary.Placeholders)
	}
	fmt.Fprintf(p.out, "===========================\n")
}

// Consolidate merges the checkpoints into the final file without translating
func (p *Processor) Consolidate(ctx context.Context) (consolidate.Result, error) {
	ctx = p.context(ctx, "consolidate")

	store, err := p.newStore(ctx, p.cfg.CheckpointSettings())
	if err != nil {
		return consolidate.Result{}, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	result, err := p.consolidate(ctx, store)
	if err != nil {
		return result, err
	}
	fmt.Fprintf(p.out, "Consolidated %d batches (%d records) into %s\n", result.Batches, result.Lines, result.Path)
	return result, nil
}

func (p *Processor) consolidate(ctx context.Context, store checkpoint.Store) (consolidate.Result, error) {
	result, err := consolidate.Consolidate(ctx, store, p.cfg.FinalPath())
	if errors.Is(err, consolidate.ErrEmptyArtifact) {
		return result, fmt.Errorf("%w: %s", err, result.Path)
	}
	return result, err
}

// Publish uploads filePath, or the final file when empty, to the Hub. An
// empty repo resolves through the configured upload target.
func (p *Processor) Publish(ctx context.Context, filePath, repo string) (publish.Result, error) {
	ctx = p.context(ctx, "publish")
	log := logger.FromContext(ctx)

	if filePath == "" {
		filePath = p.cfg.FinalPath()
	}

	pc := p.cfg.Publish
	repo, err := publish.ResolveRepo(repo, pc.Target, pc.PersonalRepo, pc.OrgRepo)
	if err != nil {
		return publish.Result{}, err
	}

	req := publish.Request{
		FilePath: filePath,
		Repo:     repo,
		Token:    pc.Token,
		Private:  pc.Private,
	}
	if err := req.Validate(); err != nil {
		return publish.Result{}, err
	}

	log.WithFields(logger.Fields{
		logger.FieldPath: filePath,
		logger.FieldRepo: repo,
	}).Info("Uploading dataset")

	publisher := publish.NewHubPublisher(publish.HubConfig{Endpoint: pc.Endpoint})
	result, err := publisher.Publish(ctx, req)
	if err != nil {
		return result, fmt.Errorf("failed to upload %s to %s: %w", filePath, repo, err)
	}

	fmt.Fprintf(p.out, "Successfully uploaded dataset to: %s\n", result.URL)
	return result, nil
}

// ListModels prints the models available to the configured engine
func (p *Processor) ListModels(ctx context.Context) error {
	ctx = p.context(ctx, "models")

	settings := p.cfg.EngineSettings()
	settings.Breaker = false
	engine, err := p.newEngine(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create translation engine: %w", err)
	}

	source, ok := engine.(translation.ModelLister)
	if !ok {
		return fmt.Errorf("engine %s cannot list models", settings.Provider)
	}

	lister := models.NewLister(settings.Provider, source)
	lister.SetOutput(p.out)
	return lister.ListAvailableModels(ctx)
}

// Archive moves the local checkpoint directory aside and returns its new
// location
func (p *Processor) Archive(ctx context.Context) (string, error) {
	ctx = p.context(ctx, "archive")

	if p.cfg.Checkpoint.Backend != checkpoint.BackendLocal {
		return "", fmt.Errorf("archive supports only the %s checkpoint backend, not %s",
			checkpoint.BackendLocal, p.cfg.Checkpoint.Backend)
	}

	dest, err := archive.ArchiveCheckpoints(p.cfg.Output.CheckpointDir)
	if err != nil {
		return "", err
	}

	logger.FromContext(ctx).WithField(logger.FieldPath, dest).Info("Archived checkpoints")
	fmt.Fprintf(p.out, "Archived %s to %s\n", p.cfg.Output.CheckpointDir, dest)
	return dest, nil
}

func closeProvider(ctx context.Context, provider dataset.Provider) {
	closer, ok := provider.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to close dataset")
	}
}
