package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/dsxlate/internal/checkpoint"
	"codeberg.org/snonux/dsxlate/internal/testutil"
	"codeberg.org/snonux/dsxlate/internal/translation"
)

func newTestRunner(t *testing.T, engine translation.Engine, policy translation.Policy) (*Runner, *checkpoint.LocalStore) {
	t.Helper()

	store := checkpoint.NewLocalStore(filepath.Join(t.TempDir(), "checkpoints"))
	ft := translation.NewFieldTranslator(engine, translation.Options{Retries: 2, Policy: policy})
	return NewRunner(translation.NewRecordTranslator(ft, []string{"text"}), store), store
}

func TestRun_WritesCheckpoints(t *testing.T) {
	engine := &testutil.MockEngine{}
	runner, store := newTestRunner(t, engine, translation.PolicyDegrade)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 250)}

	summary, err := runner.Run(context.Background(), ds, 0, 250, 100)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := Summary{Planned: 3, Processed: 3, Records: 250}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if engine.CallCount() != 250 {
		t.Errorf("Expected 250 engine calls, got %d", engine.CallCount())
	}

	names := testutil.ListDir(t, store.Dir())
	wantNames := []string{"batch_0-99.jsonl", "batch_100-199.jsonl", "batch_200-249.jsonl"}
	if strings.Join(names, ",") != strings.Join(wantNames, ",") {
		t.Errorf("checkpoints = %v, want %v", names, wantNames)
	}

	lines := testutil.ReadFileLines(t, store.Path("batch_200-249.jsonl"))
	if len(lines) != 50 {
		t.Fatalf("Expected 50 lines, got %d", len(lines))
	}
	if lines[0] != `{"idx":200,"text":"translated:text 200"}` {
		t.Errorf("Unexpected first line: %s", lines[0])
	}
}

func TestRun_ResumesWithoutEngineCalls(t *testing.T) {
	engine := &testutil.MockEngine{}
	runner, store := newTestRunner(t, engine, translation.PolicyDegrade)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 120)}
	ctx := context.Background()

	if _, err := runner.Run(ctx, ds, 0, 120, 50); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	first := map[string][]byte{}
	for _, name := range testutil.ListDir(t, store.Dir()) {
		data, _ := os.ReadFile(store.Path(name))
		first[name] = data
	}

	calls := engine.CallCount()
	selects := ds.SelectCount()

	summary, err := runner.Run(ctx, ds, 0, 120, 50)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if summary.Skipped != 3 || summary.Processed != 0 {
		t.Errorf("summary = %+v, want 3 skipped", summary)
	}
	if engine.CallCount() != calls {
		t.Errorf("Second run called the engine %d times", engine.CallCount()-calls)
	}
	if ds.SelectCount() != selects {
		t.Error("Second run selected records of skipped batches")
	}

	for name, data := range first {
		again, _ := os.ReadFile(store.Path(name))
		if string(again) != string(data) {
			t.Errorf("Checkpoint %s changed on resume", name)
		}
	}
}

func TestRun_SkipsOnlyExistingBatches(t *testing.T) {
	engine := &testutil.MockEngine{}
	runner, store := newTestRunner(t, engine, translation.PolicyDegrade)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 30)}

	if err := store.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutil.CreateCheckpointFile(t, store.Dir(), 10, 19)

	summary, err := runner.Run(context.Background(), ds, 0, 30, 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 2 || summary.Skipped != 1 || summary.Records != 20 {
		t.Errorf("summary = %+v", summary)
	}
	for _, sel := range ds.Selects {
		if sel[0] == 10 {
			t.Error("Skipped batch was selected")
		}
	}
	// pre-existing checkpoint is left untouched
	testutil.AssertFileContains(t, store.Path("batch_10-19.jsonl"), `{"idx":10}`)
}

func TestRun_ClampsEndToDatasetLength(t *testing.T) {
	engine := &testutil.MockEngine{}
	runner, store := newTestRunner(t, engine, translation.PolicyDegrade)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 15)}

	summary, err := runner.Run(context.Background(), ds, 5, 1000, 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Planned != 1 || summary.Records != 10 {
		t.Errorf("summary = %+v", summary)
	}
	testutil.AssertFileExists(t, store.Path("batch_5-14.jsonl"))
}

func TestRun_DegradeCountsPlaceholders(t *testing.T) {
	engine := &testutil.MockEngine{Errors: []error{errors.New("bad request")}}
	runner, store := newTestRunner(t, engine, translation.PolicyDegrade)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 3)}

	summary, err := runner.Run(context.Background(), ds, 0, 3, 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Placeholders != 1 || summary.Records != 3 {
		t.Errorf("summary = %+v", summary)
	}

	lines := testutil.ReadFileLines(t, store.Path("batch_0-2.jsonl"))
	if !strings.Contains(lines[0], translation.UnexpectedMarker+" text 0") {
		t.Errorf("Expected placeholder in first line, got %s", lines[0])
	}
}

func TestRun_HaltLeavesNoCheckpoint(t *testing.T) {
	engine := &testutil.MockEngine{
		Reply: func(prompt string) string { return "ok" },
	}
	runner, store := newTestRunner(t, engine, translation.PolicyHalt)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 20)}

	// first batch succeeds, then the engine starts failing
	if _, err := runner.Run(context.Background(), ds, 0, 10, 10); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	engine.AlwaysErr = errors.New("permission denied")

	summary, err := runner.Run(context.Background(), ds, 0, 20, 10)
	if !errors.Is(err, translation.ErrTranslationFailed) {
		t.Fatalf("Expected ErrTranslationFailed, got %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	testutil.AssertFileExists(t, store.Path("batch_0-9.jsonl"))
	testutil.AssertFileNotExists(t, store.Path("batch_10-19.jsonl"))

	if names := testutil.ListDir(t, store.Dir()); len(names) != 1 {
		t.Errorf("Unexpected files after halt: %v", names)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	engine := &testutil.MockEngine{}
	runner, store := newTestRunner(t, engine, translation.PolicyDegrade)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 20)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx, ds, 0, 20, 10); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if engine.CallCount() != 0 {
		t.Errorf("Engine called %d times after cancel", engine.CallCount())
	}
	testutil.AssertFileNotExists(t, store.Path("batch_0-9.jsonl"))
}

func TestRun_Validation(t *testing.T) {
	runner, _ := newTestRunner(t, &testutil.MockEngine{}, translation.PolicyDegrade)
	ds := &testutil.MemoryDataset{Records: testutil.NumberedRecords(t, 0, 5)}

	if _, err := runner.Run(context.Background(), ds, 0, 5, 0); !errors.Is(err, ErrInvalidBatchSize) {
		t.Errorf("Expected ErrInvalidBatchSize, got %v", err)
	}
	if _, err := runner.Run(context.Background(), ds, 6, 10, 1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
}
