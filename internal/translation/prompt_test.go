package translation

import (
	"strings"
	"testing"
)

func TestPromptBuild(t *testing.T) {
	p := Prompt{SourceLanguage: "English", TargetLanguage: "German"}
	got := p.Build("EBITDA = 1.2 * x")

	for _, want := range []string{
		"Translate the following English text into high-quality German",
		"Maintain all numbers, special characters, and equations exactly",
		"Original English Text:\nEBITDA = 1.2 * x\n\nTranslated German Text:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Prompt missing %q:\n%s", want, got)
		}
	}
}

func TestPromptBuild_Defaults(t *testing.T) {
	got := Prompt{}.Build("x")
	if !strings.Contains(got, DefaultSourceLanguage) || !strings.Contains(got, DefaultTargetLanguage) {
		t.Errorf("Empty prompt does not fall back to defaults:\n%s", got)
	}
	if DefaultPrompt().Build("x") != got {
		t.Error("DefaultPrompt differs from the zero prompt")
	}
}
