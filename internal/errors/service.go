// internal/errors/service.go

// Package errors turns engine errors into retry decisions, process exit
// codes, and operator-facing messages for the command line tools. The
// mapping keys off the structured error codes in internal/utils; plain
// errors fall back to conservative defaults.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
)

// Process exit codes reported by the CLI.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitConfig  = 2
	ExitInput   = 3
	ExitNoData  = 4
	ExitParse   = 5
	ExitOutput  = 6
	ExitStore   = 7
	ExitBrowser = 8
)

// RetryConfig defines backoff behavior for retryable operations.
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultRetryConfig returns the backoff used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     500 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      30 * time.Second,
	}
}

// Service owns retry policy and message verbosity for one process.
type Service struct {
	retry   RetryConfig
	verbose bool
}

// NewService returns a Service with the default retry policy.
func NewService() *Service {
	return &Service{retry: DefaultRetryConfig()}
}

// WithVerbose includes technical detail in formatted messages.
func (s *Service) WithVerbose(verbose bool) *Service {
	s.verbose = verbose
	return s
}

// WithRetryConfig replaces the retry policy.
func (s *Service) WithRetryConfig(rc RetryConfig) *Service {
	if rc.MaxRetries < 0 {
		rc.MaxRetries = 0
	}
	if rc.BackoffFactor < 1 {
		rc.BackoffFactor = 1
	}
	s.retry = rc
	return s
}

// Retry runs op until it succeeds, fails with a non-retryable error, or
// the attempt budget is spent. Backoff between attempts is exponential
// and honors ctx cancellation. Only connect-style operations should be
// retried through here; re-running a non-idempotent write is on the
// caller.
func (s *Service) Retry(ctx context.Context, name string, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			if attempt == 0 {
				return err
			}
			break
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s interrupted: %w", name, ctx.Err())
		case <-time.After(s.delay(attempt)):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, s.retry.MaxRetries+1, lastErr)
}

func (s *Service) delay(attempt int) time.Duration {
	d := time.Duration(float64(s.retry.BaseDelay) * math.Pow(s.retry.BackoffFactor, float64(attempt)))
	if d > s.retry.MaxDelay {
		d = s.retry.MaxDelay
	}
	return d
}

// Retryable reports whether an error is worth another attempt. A
// structured error answers for itself; plain driver and transport
// errors are matched on the usual transient phrases.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *utils.StructuredError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return containsTransientPhrase(strings.ToLower(err.Error()))
}

func containsTransientPhrase(msg string) bool {
	transient := []string{
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"no such host",
		"temporarily unavailable",
		"too many connections",
		"database is locked",
		"try again",
	}
	for _, phrase := range transient {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// ExitCode maps an error chain onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch utils.CodeOf(err) {
	case utils.ErrCodeInvalidConfig:
		return ExitConfig
	case utils.ErrCodeInvalidInput:
		return ExitInput
	case utils.ErrCodeNoDataFound:
		return ExitNoData
	case utils.ErrCodeParsingError, utils.ErrCodeMalformedNode:
		return ExitParse
	case utils.ErrCodeOutputFailed:
		return ExitOutput
	case utils.ErrCodeStoreError:
		return ExitStore
	case utils.ErrCodeBrowserFailed:
		return ExitBrowser
	default:
		return ExitError
	}
}

// FormatForCLI renders an error as a short operator-facing message with
// a hint line. Verbose mode appends the technical detail.
func (s *Service) FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	title, hint := describe(err)

	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\n", title)
	if hint != "" {
		fmt.Fprintf(&b, "hint: %s\n", hint)
	}
	if s.verbose {
		fmt.Fprintf(&b, "detail: %v\n", err)
	}
	return b.String()
}

func describe(err error) (title, hint string) {
	switch utils.CodeOf(err) {
	case utils.ErrCodeNoDataFound:
		return "no records found",
			"the page may not contain repeating items, or the requested fields do not match its content"
	case utils.ErrCodeSoftTimeout:
		return "extraction ran out of time",
			"partial results were kept; raise the time budget to sweep deeper levels"
	case utils.ErrCodeInvalidConfig:
		return "configuration is invalid",
			"run the validate command against the config file"
	case utils.ErrCodeInvalidInput:
		return "invalid input",
			"check the HTML source and the requested field names"
	case utils.ErrCodeStoreError:
		return "selector store unavailable",
			"check the store path and permissions"
	case utils.ErrCodeOutputFailed:
		return "writing output failed",
			"check that the output destination is writable and reachable"
	case utils.ErrCodeBrowserFailed:
		return "browser unavailable",
			"selector learning needs a reachable Chrome; cached selectors still work without one"
	case utils.ErrCodeParsingError, utils.ErrCodeMalformedNode:
		return "could not parse the page",
			"the HTML may be truncated or badly malformed"
	default:
		return "unexpected error", "run with -v for details"
	}
}
