package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/navmlang/navc/internal/buildcache"
	"github.com/navmlang/navc/internal/config"
	"github.com/navmlang/navc/internal/core"
	"github.com/navmlang/navc/internal/o0"
	"github.com/navmlang/navc/internal/parse"
	"github.com/navmlang/navc/internal/utils"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	SOURCE_FILE_EXTENSION = ".c0"
	MODULE_FILE_EXTENSION = ".o0"
	STDIO_PATH            = "-"

	OUTPUT_FILE_PERM = 0o644
	OUTPUT_DIR_PERM  = 0o755
)

var ErrInvalidArguments = errors.New("invalid arguments")

type buildOptions struct {
	output      string
	symbolsPath string
	printAsm    bool
	trace       bool
	noCache     bool
	watch       bool
	logLevel    string
}

// builder compiles source files one at a time.
type builder struct {
	config  config.Config
	options buildOptions
	cache   *buildcache.Cache //nil if caching is disabled
	logger  zerolog.Logger

	inR  io.Reader
	outW io.Writer
	errW io.Writer
}

func BuildModules(mainSubCommand string, mainSubCommandArgs []string, inR io.Reader, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)

	var options buildOptions
	flags.StringVar(&options.output, "o", "", "output file, '-' for stdout (single input only)")
	flags.StringVar(&options.symbolsPath, "symbols", "", "write a JSON summary of the globals and functions to this file, '-' for stdout")
	flags.BoolVar(&options.printAsm, "S", false, "print the compiled instructions (to stderr if the module is written to stdout)")
	flags.BoolVar(&options.trace, "trace", false, "print the compiler trace to stderr")
	flags.BoolVar(&options.noCache, "no-cache", false, "do not use the build cache")
	flags.BoolVar(&options.watch, "watch", false, "rebuild when a source file changes")
	flags.StringVar(&options.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")

	if showHelp(flags, mainSubCommandArgs, outW) {
		return 0
	}

	if err := flags.Parse(moveFlagsStart(flags, mainSubCommandArgs)); err != nil {
		return ERROR_STATUS_CODE
	}

	cfg, _, err := config.Load()
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}
	if options.logLevel != "" {
		cfg.LogLevel = options.logLevel
	}
	if options.trace {
		cfg.Trace = true
	}
	if options.noCache {
		cfg.Cache = false
	}

	level, err := cfg.ZerologLevel()
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}

	inputs, err := expandInputs(flags.Args())
	if err == nil {
		err = options.checkInputs(inputs)
	}
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}

	b := &builder{
		config:  cfg,
		options: options,
		logger:  newLogger(errW, level),
		inR:     inR,
		outW:    outW,
		errW:    errW,
	}

	if cfg.Cache {
		b.openCache()
		defer b.closeCache()
	}

	buildErr := b.buildAll(inputs)

	if options.watch {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := b.watch(ctx, flags.Args(), inputs); err != nil {
			printError(errW, err)
			return ERROR_STATUS_CODE
		}
		return 0
	}

	if buildErr != nil {
		return ERROR_STATUS_CODE
	}
	return 0
}

func (o buildOptions) checkInputs(inputs []string) error {
	switch {
	case len(inputs) == 0:
		return fmt.Errorf("%w: missing source path", ErrInvalidArguments)
	case len(inputs) > 1 && (o.output != "" || o.symbolsPath != ""):
		return fmt.Errorf("%w: -o and -symbols require a single source file, %d given", ErrInvalidArguments, len(inputs))
	case slices.Contains(inputs, STDIO_PATH) && len(inputs) > 1:
		return fmt.Errorf("%w: '-' cannot be combined with other source files", ErrInvalidArguments)
	case slices.Contains(inputs, STDIO_PATH) && o.watch:
		return fmt.Errorf("%w: the standard input cannot be watched", ErrInvalidArguments)
	case o.symbolsPath == STDIO_PATH && o.writesModuleToStdout(inputs):
		return fmt.Errorf("%w: -symbols cannot write to stdout, the module is written there", ErrInvalidArguments)
	}
	return nil
}

func (o buildOptions) writesModuleToStdout(inputs []string) bool {
	return o.output == STDIO_PATH || (o.output == "" && slices.Contains(inputs, STDIO_PATH))
}

// expandInputs expands the glob patterns in args, a pattern without matches is an error.
func expandInputs(args []string) ([]string, error) {
	var inputs []string

	for _, arg := range args {
		if !isPattern(arg) {
			inputs = append(inputs, filepath.Clean(arg))
			continue
		}

		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArguments, arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: no file matches %s", ErrInvalidArguments, arg)
		}
		slices.Sort(matches)
		inputs = append(inputs, matches...)
	}

	slices.Sort(inputs)
	return slices.Compact(inputs), nil
}

func isPattern(arg string) bool {
	return arg != STDIO_PATH && strings.ContainsAny(arg, "*?[{")
}

func (b *builder) openCache() {
	path, err := b.config.ResolveCachePath()
	if err == nil {
		b.cache, err = buildcache.Open(buildcache.Config{Path: path, Logger: b.logger})
	}
	if err != nil {
		b.logger.Warn().Err(err).Msg("build cache disabled")
	}
}

func (b *builder) closeCache() {
	if b.cache == nil {
		return
	}
	if err := b.cache.Close(); err != nil {
		b.logger.Warn().Err(err).Msg("failed to close the build cache")
	}
}

// buildAll builds each input, an error does not stop the other builds.
func (b *builder) buildAll(inputs []string) error {
	var errs []error

	for _, input := range inputs {
		if err := b.build(input); err != nil {
			printError(b.errW, err)
			errs = append(errs, err)
		}
	}

	return utils.CombineErrors(errs...)
}

func (b *builder) build(input string) error {
	start := time.Now()
	buildID := ulid.Make()
	logger := b.logger.With().
		Str(core.BUILD_LOG_FIELD_NAME, buildID.String()).
		Str("input", input).
		Logger()

	source, err := b.readSource(input)
	if err != nil {
		return err
	}

	outputPath, err := b.outputPath(input)
	if err != nil {
		return err
	}

	var module []byte

	//the listing, the symbols and the trace require a compilation.
	useCache := b.cache != nil && !b.options.printAsm && b.options.symbolsPath == "" && !b.config.Trace

	if useCache {
		cached, record, found, err := b.cache.Get(source)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("build cache lookup failed")
		case found:
			logger.Debug().Str("cached-build", record.BuildID.String()).Msg("cache hit")
			module = cached
		}
	}

	if module == nil {
		module, err = b.compile(input, source, outputPath, logger)
		if err != nil {
			return err
		}

		if b.cache != nil {
			if _, err := b.cache.Put(input, source, module, buildID); err != nil {
				logger.Warn().Err(err).Msg("failed to cache the module")
			}
		}
	}

	if err := b.writeOutput(outputPath, module); err != nil {
		return err
	}

	logger.Info().
		Str("output", outputPath).
		Int("size", len(module)).
		Dur("duration", time.Since(start)).
		Msg("module built")
	return nil
}

// compile compiles source, the listing goes to stderr if the module is written to stdout.
func (b *builder) compile(input string, source []byte, outputPath string, logger zerolog.Logger) ([]byte, error) {
	compilationInput := core.CompilationInput{
		Source: parse.NewTokenStream(string(source)),
		Logger: logger,
	}
	if b.config.Trace {
		compilationInput.TraceWriter = b.errW
	}

	prog, err := core.Compile(compilationInput)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	if b.options.printAsm {
		listingW := b.outW
		if outputPath == STDIO_PATH {
			listingW = b.errW
		}
		fmt.Fprint(listingW, prog.String())
	}

	if b.options.symbolsPath != "" {
		if err := b.writeSymbols(prog); err != nil {
			return nil, err
		}
	}

	return o0.Marshal(prog)
}

func (b *builder) readSource(input string) ([]byte, error) {
	if input == STDIO_PATH {
		return io.ReadAll(b.inR)
	}
	return os.ReadFile(input)
}

// outputPath returns the path given with -o or, by default, the path of the source with
// the module extension, located in the configured output directory if any.
func (b *builder) outputPath(input string) (string, error) {
	if b.options.output != "" {
		return b.options.output, nil
	}
	if input == STDIO_PATH {
		return STDIO_PATH, nil
	}

	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + MODULE_FILE_EXTENSION
	dir := filepath.Dir(input)

	if b.config.Output != "" {
		dir = b.config.Output
		if err := os.MkdirAll(dir, OUTPUT_DIR_PERM); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, name), nil
}

func (b *builder) writeOutput(path string, content []byte) error {
	if path == STDIO_PATH {
		_, err := b.outW.Write(content)
		return err
	}
	return os.WriteFile(path, content, OUTPUT_FILE_PERM)
}
