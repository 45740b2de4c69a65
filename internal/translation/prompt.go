package translation

import "fmt"

// Default language pair
const (
	DefaultSourceLanguage = "English"
	DefaultTargetLanguage = "Modern Standard Arabic (MSA)"
)

// Prompt builds the instruction sent to the engine for one text value
type Prompt struct {
	SourceLanguage string
	TargetLanguage string
}

// DefaultPrompt returns the English to Modern Standard Arabic prompt
func DefaultPrompt() Prompt {
	return Prompt{
		SourceLanguage: DefaultSourceLanguage,
		TargetLanguage: DefaultTargetLanguage,
	}
}

// Build embeds text in the translation instruction
func (p Prompt) Build(text string) string {
	source := p.SourceLanguage
	if source == "" {
		source = DefaultSourceLanguage
	}
	target := p.TargetLanguage
	if target == "" {
		target = DefaultTargetLanguage
	}

	return fmt.Sprintf(`Translate the following %[1]s text into high-quality %[2]s with a focus on clarity, precise financial and mathematical terminology, and natural fluency for educational or reasoning-based datasets. Maintain all numbers, special characters, and equations exactly as in the original.

Original %[1]s Text:
%[3]s

Translated %[2]s Text:`, source, target, text)
}
