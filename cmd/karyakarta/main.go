// cmd/karyakarta/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/engine"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/errors"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/output"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/pipeline"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return errors.ExitInput
	}

	switch args[0] {
	case "extract":
		return runExtract(args[1:])

	case "validate":
		return runValidate(args[1:])

	case "template":
		return runTemplate(args[1:])

	case "version", "--version":
		printVersion(os.Stdout)
		return errors.ExitOK

	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return errors.ExitOK

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n\n", args[0])
		printUsage(os.Stderr)
		return errors.ExitInput
	}
}

// extractOptions hold the parsed extract command line. Unset values
// defer to the configuration file.
type extractOptions struct {
	input   string
	config  string
	fields  []string
	limit   int
	hasLim  bool
	domain  string
	output  string
	format  string
	all     bool
	verbose bool
}

func parseExtractArgs(args []string) (*extractOptions, error) {
	opts := &extractOptions{}
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-v", "--verbose":
			opts.verbose = true

		case "--all":
			opts.all = true

		case "--config", "--fields", "--limit", "--domain", "--output", "--format":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			if err := opts.set(arg, args[i]); err != nil {
				return nil, err
			}

		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return nil, fmt.Errorf("unknown flag %q", arg)
			}
			if opts.input != "" {
				return nil, fmt.Errorf("unexpected argument %q", arg)
			}
			opts.input = arg
		}
	}
	if opts.input == "" {
		return nil, fmt.Errorf("an input file is required; use - to read stdin")
	}
	return opts, nil
}

func (o *extractOptions) set(flag, value string) error {
	switch flag {
	case "--config":
		o.config = value
	case "--fields":
		for _, f := range strings.Split(value, ",") {
			if f = strings.TrimSpace(f); f != "" {
				o.fields = append(o.fields, f)
			}
		}
		if len(o.fields) == 0 {
			return fmt.Errorf("--fields got an empty list")
		}
	case "--limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("--limit wants an integer, got %q", value)
		}
		o.limit = n
		o.hasLim = true
	case "--domain":
		o.domain = value
	case "--output":
		o.output = value
	case "--format":
		o.format = value
	}
	return nil
}

func runExtract(args []string) int {
	opts, err := parseExtractArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		printExtractUsage(os.Stderr)
		return errors.ExitInput
	}
	errs := errors.NewService().WithVerbose(opts.verbose)

	cfg, err := loadConfig(opts.config)
	if err != nil {
		return fail(errs, err)
	}
	if opts.output != "" {
		cfg.Output.File = opts.output
	}
	if opts.format != "" {
		// Flag overrides bypass config validation, so check here.
		if !utils.IsValidOutputFormat(opts.format) {
			return fail(errs, utils.NewError(utils.ErrCodeInvalidInput,
				fmt.Sprintf("unsupported output format %q", opts.format)))
		}
		cfg.Output.Format = opts.format
	}

	html, err := readInput(opts.input)
	if err != nil {
		return fail(errs, err)
	}

	// Records may go to stdout, so engine diagnostics must not.
	level := utils.ParseLevel(cfg.LogLevel)
	if opts.verbose {
		level = utils.DebugLevel
	}
	logger := utils.NewLoggerWithOutput(level, os.Stderr)

	eng, err := engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		return fail(errs, err)
	}
	defer eng.Close()

	fields := opts.fields
	if len(fields) == 0 {
		fields = cfg.Fields
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "configuration: %s\n", cfg.Name)
		fmt.Fprintf(os.Stderr, "fields: %s\n", strings.Join(fields, ", "))
	}

	req := engine.Request{
		HTML:   html,
		Domain: opts.domain,
		Fields: opts.fields,
	}
	if opts.hasLim {
		req.Limit = opts.limit
		if req.Limit == 0 {
			req.Limit = -1
		}
	}

	ctx := context.Background()
	var result *types.Result
	if opts.all {
		result, err = eng.ExtractAll(ctx, req)
	} else {
		result, err = eng.Extract(ctx, req)
	}
	if err != nil {
		return fail(errs, err)
	}

	transformer, err := pipeline.NewTransformer(cfg.Output.Transforms)
	if err != nil {
		return fail(errs, err)
	}
	records, err := transformer.Apply(result.Records)
	if err != nil {
		return fail(errs, err)
	}

	// Database writers fail transiently on connect and insert; file
	// writers pass through on the first attempt.
	err = errs.Retry(ctx, "record write", func() error {
		return writeRecords(cfg.Output, records)
	})
	if err != nil {
		return fail(errs, err)
	}

	if result.Partial {
		fmt.Fprintln(os.Stderr, "warning: time budget expired, results are partial")
	}
	if !opts.all && len(fields) > 0 {
		printReport(eng.ValidateCompleteness(records, fields), opts.verbose)
	}
	fmt.Fprintf(os.Stderr, "extracted %d records in %s\n",
		len(records), utils.FormatDuration(result.Stats.Elapsed))
	return errors.ExitOK
}

func runValidate(args []string) int {
	verbose := false
	path := ""
	for _, arg := range args {
		switch arg {
		case "-v", "--verbose":
			verbose = true
		default:
			path = arg
		}
	}
	errs := errors.NewService().WithVerbose(verbose)
	if path == "" {
		fmt.Fprintln(os.Stderr, "error: a configuration file is required")
		fmt.Fprintln(os.Stderr, "usage: karyakarta validate <config.yaml>")
		return errors.ExitInput
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return fail(errs, utils.WrapError(err, utils.ErrCodeInvalidConfig, "configuration rejected"))
	}

	fmt.Printf("configuration %q is valid\n", path)
	if verbose {
		fmt.Printf("  name:    %s\n", cfg.Name)
		fmt.Printf("  fields:  %s\n", strings.Join(cfg.Fields, ", "))
		fmt.Printf("  limit:   %d\n", cfg.Limit)
		fmt.Printf("  store:   %s\n", cfg.Store.Driver)
		fmt.Printf("  output:  %s\n", cfg.Output.Format)
	}
	return errors.ExitOK
}

func runTemplate(args []string) int {
	kind := "basic"
	for i := 0; i < len(args); i++ {
		if args[i] == "--type" && i+1 < len(args) {
			kind = args[i+1]
			i++
		}
	}

	cfg := config.GenerateTemplate(kind)
	if err := config.SaveToWriter(&cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return errors.ExitError
	}
	return errors.ExitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "configuration rejected")
	}
	return cfg, nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", utils.WrapError(err, utils.ErrCodeInvalidInput, "failed to read stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", utils.WrapError(err, utils.ErrCodeInvalidInput,
			fmt.Sprintf("failed to read input file %s", path))
	}
	return string(data), nil
}

func writeRecords(cfg config.OutputConfig, records []types.Record) error {
	writer, err := output.NewWriter(cfg)
	if err != nil {
		return err
	}
	if err := writer.Write(records); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func printReport(report *types.ValidationReport, verbose bool) {
	fmt.Fprintf(os.Stderr, "coverage: %.0f%% of requested fields", report.Coverage*100)
	if len(report.MissingFields) > 0 {
		fmt.Fprintf(os.Stderr, " (missing: %s)", strings.Join(report.MissingFields, ", "))
	}
	fmt.Fprintln(os.Stderr)

	if verbose {
		for _, action := range report.SuggestedActions {
			fmt.Fprintf(os.Stderr, "  suggestion [%s]: %s\n", action.Priority, action.Description)
		}
	}
}

func fail(errs *errors.Service, err error) int {
	fmt.Fprint(os.Stderr, errs.FormatForCLI(err))
	return errors.ExitCode(err)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "karyakarta - selector-free structured extraction from HTML")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  karyakarta extract <file|->  [options]   Extract records from an HTML document")
	fmt.Fprintln(w, "  karyakarta validate <config.yaml>        Validate a configuration file")
	fmt.Fprintln(w, "  karyakarta template [--type <kind>]      Print a configuration template")
	fmt.Fprintln(w, "  karyakarta version                       Show version information")
	fmt.Fprintln(w, "  karyakarta help                          Show this help message")
	fmt.Fprintln(w)
	printExtractUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Template kinds: basic (default), ecommerce, news, server")
}

func printExtractUsage(w io.Writer) {
	fmt.Fprintln(w, "Extract options:")
	fmt.Fprintln(w, "  --config <file>    Configuration file to load")
	fmt.Fprintln(w, "  --fields <a,b,c>   Fields to extract, overriding the configuration")
	fmt.Fprintln(w, "  --limit <n>        Record cap; 0 means no cap")
	fmt.Fprintln(w, "  --domain <host>    Domain key for selector reuse and tool scoring")
	fmt.Fprintln(w, "  --output <file>    Destination file; stdout when omitted")
	fmt.Fprintln(w, "  --format <fmt>     json, jsonl, csv, tsv, xml, yaml, excel,")
	fmt.Fprintln(w, "                     sqlite, postgresql, mysql, mongodb")
	fmt.Fprintln(w, "  --all              Sweep every repeating structure, ignoring fields")
	fmt.Fprintln(w, "  -v, --verbose      Chatty progress and error detail")
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "karyakarta %s\n", version)
	fmt.Fprintf(w, "  build time: %s\n", buildTime)
	fmt.Fprintf(w, "  git commit: %s\n", gitCommit)
}
