package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/core"
	"github.com/codelens/codelens/internal/core/engine"
	"github.com/codelens/codelens/internal/llm"
	"github.com/codelens/codelens/internal/observability"
	"github.com/codelens/codelens/internal/output"
)

var explainCmd = &cobra.Command{
	Use:   "explain <file>...",
	Short: "Explain code files with the configured LLM",
	Long: `Send one or more source files to the configured LLM and print the
explanation, likely errors, and an improved version for each.

The language is detected from the file extension (.py for Python;
.cc/.cpp/.cxx/.hpp for C++) and can be forced with --language. Use "-"
to read a single snippet from stdin (requires --language).

Examples:
  codelens explain main.py
  codelens explain --language cpp solver.cc helper.cc
  cat snippet.py | codelens explain --language python -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringP("language", "l", "", "Force source language: python or cpp")
	explainCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table, json, markdown")
	explainCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	explainCmd.Flags().String("out-dir", "", "Write one output file per source into a directory")
	explainCmd.Flags().Int("concurrency", 3, "Concurrent upstream requests")
}

func runExplain(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	languageFlag, err := cmd.Flags().GetString("language")
	if err != nil {
		return err
	}
	var override core.Language
	if strings.TrimSpace(languageFlag) != "" {
		lang, ok := core.ParseLanguage(languageFlag)
		if !ok {
			return fmt.Errorf("unsupported language %q (supported: python, cpp)", languageFlag)
		}
		override = lang
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}

	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	jobs, err := buildExplainJobs(args, override)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	startedAt := time.Now()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	drv, err := llm.BuildDriver(cfg.LLM)
	if err != nil {
		return err
	}
	registry, err := llm.LoadRegistry(cfg.LLM)
	if err != nil {
		return err
	}
	service := llm.NewService(cfg.LLM, drv, registry, versionInfo.Version)

	validator := &engine.Validator{
		MaxBytes:      cfg.Validation.MaxBytes,
		MaxLines:      cfg.Validation.MaxLines,
		MaxLineLength: cfg.Validation.MaxLineLength,
	}

	reports, err := runExplainJobs(ctx, service, validator, jobs, concurrency)
	if err != nil {
		return err
	}

	if outDir != "" {
		if err := writeReportsToDir(format, outDir, reports); err != nil {
			return err
		}
	} else {
		rendered, err := output.FormatReportList(format, reports)
		if err != nil {
			return err
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()

		if strings.TrimSpace(rendered) != "" {
			if _, err := fmt.Fprintln(sink, rendered); err != nil {
				return err
			}
		}
	}

	failed := 0
	for _, report := range reports {
		if report != nil && report.Failed {
			failed++
		}
	}
	observability.CLILogger.Info("Explain run complete",
		zap.Int("sources", len(reports)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(startedAt)))

	return nil
}

type explainJob struct {
	index    int
	source   string
	language core.Language
}

// buildExplainJobs resolves each source argument to a language before any
// upstream work starts, so mistakes fail the whole run immediately.
func buildExplainJobs(sources []string, override core.Language) ([]explainJob, error) {
	jobs := make([]explainJob, 0, len(sources))
	stdinSeen := false

	for i, source := range sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}

		if source == "-" {
			if stdinSeen {
				return nil, errors.New("stdin (-) may appear at most once")
			}
			stdinSeen = true
			if override == "" {
				return nil, errors.New("--language is required when reading from stdin")
			}
		}

		language := override
		if language == "" {
			detected, ok := detectLanguage(source)
			if !ok {
				return nil, fmt.Errorf("cannot detect language for %q (use --language)", source)
			}
			language = detected
		}

		jobs = append(jobs, explainJob{index: i, source: source, language: language})
	}

	if len(jobs) == 0 {
		return nil, errors.New("at least one source file is required")
	}
	return jobs, nil
}

// detectLanguage maps a filename extension to a supported language.
func detectLanguage(source string) (core.Language, bool) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".py":
		return core.LanguagePython, true
	case ".cc", ".cpp", ".cxx", ".c++", ".hh", ".hpp", ".hxx":
		return core.LanguageCPP, true
	default:
		return "", false
	}
}

func runExplainJobs(ctx context.Context, service *llm.Service, validator *engine.Validator, jobs []explainJob, concurrency int) ([]*core.ExplainReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reports := make([]*core.ExplainReport, len(jobs))
	queue := make(chan explainJob)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	setErr := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	worker := func() {
		defer wg.Done()
		for job := range queue {
			if ctx.Err() != nil {
				return
			}
			report, err := explainOne(ctx, service, validator, job)
			if err != nil {
				setErr(err)
				return
			}
			reports[job.index] = report
		}
	}

	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break sendLoop
		case queue <- job:
		}
	}
	close(queue)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return reports, nil
}

// explainOne reads, validates, and explains one source. Validation and
// upstream failures come back as failed reports; only unreadable sources and
// service misconfiguration abort the run.
func explainOne(ctx context.Context, service *llm.Service, validator *engine.Validator, job explainJob) (*core.ExplainReport, error) {
	code, err := readSource(job.source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", job.source, err)
	}

	report := &core.ExplainReport{
		Source:   job.source,
		Language: job.language,
	}

	sub, verr := validator.Validate(string(job.language), code)
	if verr != nil {
		report.Failed = true
		report.Message = verr.Message
		return report, nil
	}

	outcome, err := service.Explain(ctx, sub)
	if err != nil {
		return nil, err
	}

	report.Provenance = outcome.Provenance
	if outcome.Reply == nil || outcome.Reply.Status != llm.StatusSuccess {
		report.Failed = true
		report.Message = "upstream request failed"
		if outcome.Reply != nil && outcome.Reply.Failure != nil && outcome.Reply.Failure.Message != "" {
			report.Message = outcome.Reply.Failure.Message
		}
		return report, nil
	}

	report.Result = outcome.Result
	return report, nil
}

func readSource(source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeReportsToDir writes one rendered file per report, named after the
// source with the format extension appended.
func writeReportsToDir(format output.Format, dir string, reports []*core.ExplainReport) error {
	resolved, err := ensureOutDir(dir)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(format)
	ext := outputExtension(format)

	for _, report := range reports {
		if report == nil {
			continue
		}

		rendered, err := formatter.FormatReport(report)
		if err != nil {
			return err
		}

		name := report.Source
		if name == "-" {
			name = "stdin"
		}
		path := filepath.Join(resolved, fmt.Sprintf("%s.explain.%s", sanitizeFilename(filepath.Base(name)), ext))
		if err := os.WriteFile(path, []byte(rendered+"\n"), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	return nil
}
