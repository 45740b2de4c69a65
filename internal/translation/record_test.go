package translation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"codeberg.org/snonux/dsxlate/internal/record"
	"codeberg.org/snonux/dsxlate/internal/testutil"
)

func TestTranslateRecord_FieldSelection(t *testing.T) {
	rec, err := record.Parse([]byte(`{"A":"alpha","B":"beta","C":"gamma"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	engine := &testutil.MockEngine{}
	rt := NewRecordTranslator(NewFieldTranslator(engine, Options{Retries: 1}), []string{"A", "C"})

	out, err := rt.TranslateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("TranslateRecord failed: %v", err)
	}

	if !reflect.DeepEqual(out.Keys(), []string{"A", "B", "C"}) {
		t.Errorf("Key set changed: %v", out.Keys())
	}

	want := map[string]string{"A": "translated:alpha", "B": "beta", "C": "translated:gamma"}
	for k, v := range want {
		if got, _ := out.Text(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}

	if engine.CallCount() != 2 {
		t.Errorf("Expected 2 engine calls, got %d", engine.CallCount())
	}

	// source record untouched
	if got, _ := rec.Text("A"); got != "alpha" {
		t.Errorf("source record modified: A = %q", got)
	}
}

func TestTranslateRecord_SkipsAbsentAndFalsy(t *testing.T) {
	rec, err := record.Parse([]byte(`{"q":"","a":null,"n":0,"x":"keep"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	engine := &testutil.MockEngine{}
	rt := NewRecordTranslator(NewFieldTranslator(engine, Options{Retries: 1}), []string{"q", "a", "n", "missing"})

	out, err := rt.TranslateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("TranslateRecord failed: %v", err)
	}
	if engine.CallCount() != 0 {
		t.Errorf("Expected no engine calls, got %d", engine.CallCount())
	}

	data, _ := out.MarshalJSON()
	if string(data) != `{"q":"","a":null,"n":0,"x":"keep"}` {
		t.Errorf("Record changed: %s", data)
	}
}

func TestTranslateRecord_CoercesNonStrings(t *testing.T) {
	rec, err := record.Parse([]byte(`{"n":42,"list":["a","b"]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	engine := &testutil.MockEngine{}
	rt := NewRecordTranslator(NewFieldTranslator(engine, Options{Retries: 1}), []string{"n", "list"})

	out, err := rt.TranslateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("TranslateRecord failed: %v", err)
	}

	data, _ := out.MarshalJSON()
	if string(data) != `{"n":"translated:42","list":"translated:[\"a\",\"b\"]"}` {
		t.Errorf("Unexpected record: %s", data)
	}
}

func TestTranslateRecord_HaltPolicyReturnsError(t *testing.T) {
	rec, _ := record.Parse([]byte(`{"q":"question"}`))

	engine := &testutil.MockEngine{AlwaysErr: errors.New("bad request")}
	ft := NewFieldTranslator(engine, Options{Retries: 1, Policy: PolicyHalt})
	rt := NewRecordTranslator(ft, []string{"q"})

	if _, err := rt.TranslateRecord(context.Background(), rec); !errors.Is(err, ErrTranslationFailed) {
		t.Errorf("Expected ErrTranslationFailed, got %v", err)
	}
}

func TestRecordTranslator_FieldsIsCopy(t *testing.T) {
	fields := []string{"a", "b"}
	rt := NewRecordTranslator(NewFieldTranslator(&testutil.MockEngine{}, Options{}), fields)
	fields[0] = "changed"

	if rt.Fields()[0] != "a" {
		t.Error("RecordTranslator shares the caller's selector slice")
	}
}
