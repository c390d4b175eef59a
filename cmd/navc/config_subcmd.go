package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/navmlang/navc/internal/config"
)

func ShowConfig(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)

	var createFile bool
	flags.BoolVar(&createFile, "init", false, "create the config file with the default settings if it does not exist")

	if showHelp(flags, mainSubCommandArgs, outW) {
		return 0
	}

	if err := flags.Parse(mainSubCommandArgs); err != nil {
		return ERROR_STATUS_CODE
	}

	if createFile {
		path, err := config.WriteDefaultFile()
		if err != nil {
			printError(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintf(outW, "config file: %s\n", path)
	}

	cfg, path, err := config.Load()
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}

	content, err := cfg.Marshal()
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}

	if path == "" {
		fmt.Fprintln(outW, "# no config file, defaults and environment")
	} else if !createFile {
		fmt.Fprintf(outW, "# %s\n", path)
	}
	fmt.Fprintf(outW, "%s", content)
	return 0
}
