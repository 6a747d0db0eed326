package engine

import (
	"fmt"
	"strings"

	"github.com/codelens/codelens/internal/core"
)

// Default validation limits applied when a Validator field is zero.
const (
	DefaultMaxBytes      = 20000
	DefaultMaxLines      = 500
	DefaultMaxLineLength = 10000
)

// ViolationRule identifies which validation rule rejected a submission.
type ViolationRule string

const (
	RuleUnsupportedLanguage ViolationRule = "unsupported_language"
	RuleEmptyCode           ViolationRule = "empty_code"
	RuleTooLarge            ViolationRule = "too_large"
	RuleTooManyLines        ViolationRule = "too_many_lines"
	RuleLineTooLong         ViolationRule = "line_too_long"
	RuleInvalidCharacters   ViolationRule = "invalid_characters"
)

// ValidationError describes why a submission was rejected.
type ValidationError struct {
	Rule    ViolationRule
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validator screens submissions before prompt construction. Rules run in a
// fixed order and the first violation wins. Zero-valued limits fall back to
// the package defaults.
type Validator struct {
	MaxBytes      int
	MaxLines      int
	MaxLineLength int
}

// Validate checks the raw language and code and returns a normalized
// Submission, or the violation that rejected it. Code is never modified:
// submissions containing disallowed control characters are rejected rather
// than silently stripped.
func (v *Validator) Validate(language, code string) (*core.Submission, *ValidationError) {
	lang, ok := core.ParseLanguage(language)
	if !ok {
		return nil, &ValidationError{
			Rule:    RuleUnsupportedLanguage,
			Field:   "language",
			Message: fmt.Sprintf("unsupported language %q (supported: python, cpp)", strings.TrimSpace(language)),
		}
	}

	if strings.TrimSpace(code) == "" {
		return nil, &ValidationError{
			Rule:    RuleEmptyCode,
			Field:   "code",
			Message: "code must not be empty",
		}
	}

	maxBytes := v.maxBytes()
	if len(code) > maxBytes {
		return nil, &ValidationError{
			Rule:    RuleTooLarge,
			Field:   "code",
			Message: fmt.Sprintf("code exceeds maximum size of %d bytes (got %d)", maxBytes, len(code)),
		}
	}

	lines := strings.Split(code, "\n")
	maxLines := v.maxLines()
	if len(lines) > maxLines {
		return nil, &ValidationError{
			Rule:    RuleTooManyLines,
			Field:   "code",
			Message: fmt.Sprintf("code exceeds maximum of %d lines (got %d)", maxLines, len(lines)),
		}
	}

	maxLineLength := v.maxLineLength()
	for i, line := range lines {
		if len(line) > maxLineLength {
			return nil, &ValidationError{
				Rule:    RuleLineTooLong,
				Field:   "code",
				Message: fmt.Sprintf("line %d exceeds maximum length of %d characters", i+1, maxLineLength),
			}
		}
	}

	if i := indexControlByte(code); i >= 0 {
		return nil, &ValidationError{
			Rule:    RuleInvalidCharacters,
			Field:   "code",
			Message: fmt.Sprintf("code contains a disallowed control character at byte %d", i),
		}
	}

	return &core.Submission{Language: lang, Code: code}, nil
}

// indexControlByte returns the offset of the first disallowed control byte,
// or -1. Tab, newline, and carriage return are allowed.
func indexControlByte(code string) int {
	for i := 0; i < len(code); i++ {
		b := code[i]
		if b == 0x7f {
			return i
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return i
		}
	}
	return -1
}

func (v *Validator) maxBytes() int {
	if v == nil || v.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return v.MaxBytes
}

func (v *Validator) maxLines() int {
	if v == nil || v.MaxLines <= 0 {
		return DefaultMaxLines
	}
	return v.MaxLines
}

func (v *Validator) maxLineLength() int {
	if v == nil || v.MaxLineLength <= 0 {
		return DefaultMaxLineLength
	}
	return v.MaxLineLength
}
