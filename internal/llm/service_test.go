package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/core"
	"github.com/codelens/codelens/internal/llm/driver"
	"github.com/codelens/codelens/internal/llm/prompt"
)

type recordingDriver struct {
	req  *driver.Request
	text string
	raw  []byte
	err  error
}

func (d *recordingDriver) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	d.req = req
	if d.err != nil {
		return nil, d.err
	}
	return &driver.Response{Text: d.text, Raw: d.raw}, nil
}

func (d *recordingDriver) Name() string { return "recording" }

func newTestService(t *testing.T, cfg Config, drv driver.Driver) *Service {
	t.Helper()

	registry, err := prompt.DefaultRegistry()
	require.NoError(t, err)

	svc := NewService(cfg, drv, registry, "1.2.3-test")
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	svc.Clock = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	if svc.Client != nil {
		svc.Client.sleep = func(context.Context, time.Duration) error { return nil }
	}
	return svc
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	svc := newTestService(t, Config{Model: "test-model"}, &recordingDriver{})
	sub := &core.Submission{Language: core.LanguagePython, Code: "print(\"hello\")"}

	first, err := svc.BuildPrompt(sub)
	require.NoError(t, err)
	second, err := svc.BuildPrompt(sub)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Contains(t, first, "### Explanation")
	require.Contains(t, first, "### Errors")
	require.Contains(t, first, "### Improved Code")
	require.Contains(t, first, "Python")
	require.Contains(t, first, "print(\"hello\")")
	require.NotContains(t, first, "{{code}}")
	require.NotContains(t, first, "{{language_display}}")
}

func TestBuildPromptVariesByLanguage(t *testing.T) {
	svc := newTestService(t, Config{}, &recordingDriver{})

	pythonPrompt, err := svc.BuildPrompt(&core.Submission{Language: core.LanguagePython, Code: "x = 1"})
	require.NoError(t, err)
	cppPrompt, err := svc.BuildPrompt(&core.Submission{Language: core.LanguageCPP, Code: "x = 1"})
	require.NoError(t, err)

	require.NotEqual(t, pythonPrompt, cppPrompt)
	require.Contains(t, cppPrompt, "C++")
}

func TestBuildPromptLeavesPlaceholdersInCodeAlone(t *testing.T) {
	svc := newTestService(t, Config{}, &recordingDriver{})
	sub := &core.Submission{Language: core.LanguagePython, Code: `s = "{{language_display}}"`}

	first, err := svc.BuildPrompt(sub)
	require.NoError(t, err)
	second, err := svc.BuildPrompt(sub)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Contains(t, first, `s = "{{language_display}}"`)
}

func TestServiceExplainSuccess(t *testing.T) {
	drv := &recordingDriver{text: "### Explanation\nfoo\n### Errors\nbar\n### Improved Code\nbaz"}
	cfg := Config{Model: "test-model", Temperature: 0.2, MaxTokens: 1024, Retries: 2}
	svc := newTestService(t, cfg, drv)

	outcome, err := svc.Explain(context.Background(), &core.Submission{Language: core.LanguagePython, Code: "x = 1"})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	require.Equal(t, "foo", outcome.Result.Explanation)
	require.Equal(t, "bar", outcome.Result.Errors)
	require.Equal(t, "baz", outcome.Result.ImprovedCode)
	require.Equal(t, StatusSuccess, outcome.Reply.Status)

	require.NotNil(t, drv.req)
	require.Equal(t, "test-model", drv.req.Model)
	require.NotNil(t, drv.req.Temperature)
	require.InDelta(t, 0.2, *drv.req.Temperature, 0.0001)
	require.NotNil(t, drv.req.MaxTokens)
	require.Equal(t, 1024, *drv.req.MaxTokens)
	require.Contains(t, drv.req.Prompt, "x = 1")

	require.Equal(t, "recording", outcome.Provenance.Provider)
	require.Equal(t, "test-model", outcome.Provenance.Model)
	require.Equal(t, 1, outcome.Provenance.Attempts)
	require.Equal(t, "1.2.3-test", outcome.Provenance.ToolVersion)
	require.True(t, outcome.Provenance.ResolvedAt.After(outcome.Provenance.RequestedAt))
}

func TestServiceExplainUpstreamFatal(t *testing.T) {
	drv := &recordingDriver{err: &driver.ProviderError{Provider: "recording", StatusCode: 400, Message: "bad payload"}}
	svc := newTestService(t, Config{Model: "test-model"}, drv)

	outcome, err := svc.Explain(context.Background(), &core.Submission{Language: core.LanguagePython, Code: "x = 1"})
	require.NoError(t, err)
	require.Equal(t, StatusFatalError, outcome.Reply.Status)
	require.Equal(t, FailureBadRequest, outcome.Reply.Failure.Code)

	require.Equal(t, outcome.Result.Explanation, outcome.Result.Errors)
	require.Equal(t, outcome.Result.Explanation, outcome.Result.ImprovedCode)
	require.Equal(t, "upstream rejected the request", outcome.Result.Explanation)
	require.Equal(t, 1, outcome.Provenance.Attempts)
}

func TestServiceExplainRawCapture(t *testing.T) {
	raw := []byte(strings.Repeat("a", 100))

	t.Run("DisabledDropsRaw", func(t *testing.T) {
		drv := &recordingDriver{text: "ok", raw: raw}
		svc := newTestService(t, Config{}, drv)

		outcome, err := svc.Explain(context.Background(), &core.Submission{Language: core.LanguagePython, Code: "x"})
		require.NoError(t, err)
		require.Nil(t, outcome.Reply.Raw)
	})

	t.Run("EnabledTruncates", func(t *testing.T) {
		drv := &recordingDriver{text: "ok", raw: raw}
		cfg := Config{Debug: DebugConfig{CaptureRawEnabled: true, CaptureRawMaxBytes: 16}}
		svc := newTestService(t, cfg, drv)

		outcome, err := svc.Explain(context.Background(), &core.Submission{Language: core.LanguagePython, Code: "x"})
		require.NoError(t, err)
		require.Len(t, outcome.Reply.Raw, 16)
	})
}

func TestServiceExplainGuards(t *testing.T) {
	t.Run("NilSubmission", func(t *testing.T) {
		svc := newTestService(t, Config{}, &recordingDriver{text: "ok"})
		_, err := svc.Explain(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("MissingRegistry", func(t *testing.T) {
		svc := NewService(Config{}, &recordingDriver{text: "ok"}, nil, "test")
		_, err := svc.Explain(context.Background(), &core.Submission{Language: core.LanguagePython, Code: "x"})
		require.Error(t, err)
	})
}
