package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/navmlang/navc/internal/buildcache"
	"github.com/navmlang/navc/internal/config"
	"github.com/rs/zerolog"
)

const (
	CACHE_LS_ACTION    = "ls"
	CACHE_CLEAR_ACTION = "clear"
)

func ManageCache(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)

	if showHelp(flags, mainSubCommandArgs, outW) {
		fmt.Fprintf(outW, "\nactions: %s, %s\n", CACHE_LS_ACTION, CACHE_CLEAR_ACTION)
		return 0
	}

	if err := flags.Parse(mainSubCommandArgs); err != nil {
		return ERROR_STATUS_CODE
	}

	action := CACHE_LS_ACTION
	if flags.NArg() > 0 {
		action = flags.Arg(0)
	}
	if action != CACHE_LS_ACTION && action != CACHE_CLEAR_ACTION {
		printError(errW, fmt.Errorf("%w: unknown cache action '%s'", ErrInvalidArguments, action))
		return ERROR_STATUS_CODE
	}

	cfg, _, err := config.Load()
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}

	level, err := cfg.ZerologLevel()
	if err != nil {
		level = zerolog.WarnLevel
	}

	path, err := cfg.ResolveCachePath()
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}

	cache, err := buildcache.Open(buildcache.Config{Path: path, Logger: newLogger(errW, level)})
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}
	defer cache.Close()

	switch action {
	case CACHE_CLEAR_ACTION:
		count, err := cache.Clear()
		if err != nil {
			printError(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintf(outW, "removed %d module(s) from %s\n", count, cache.Path())
	default:
		records, err := cache.Records()
		if err != nil {
			printError(errW, err)
			return ERROR_STATUS_CODE
		}

		w := tabwriter.NewWriter(outW, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BUILD\tSOURCE\tSIZE\tCOMPRESSED\tCREATED")
		for _, record := range records {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				record.BuildID, record.SourcePath, record.ModuleSize, record.CompressedSize, record.CreatedAt.Format(time.DateTime))
		}
		w.Flush()
	}
	return 0
}
