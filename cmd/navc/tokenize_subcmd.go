package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/navmlang/navc/internal/parse"
)

func TokenizeSource(mainSubCommand string, mainSubCommandArgs []string, inR io.Reader, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)

	var printJSON bool
	flags.BoolVar(&printJSON, "json", false, "print the tokens as a JSON array")

	if showHelp(flags, mainSubCommandArgs, outW) {
		return 0
	}

	if err := flags.Parse(moveFlagsStart(flags, mainSubCommandArgs)); err != nil {
		return ERROR_STATUS_CODE
	}

	if flags.NArg() != 1 {
		printError(errW, fmt.Errorf("%w: expected a single source path or '-'", ErrInvalidArguments))
		return ERROR_STATUS_CODE
	}

	path := flags.Arg(0)

	var (
		source []byte
		err    error
	)
	if path == STDIO_PATH {
		source, err = io.ReadAll(inR)
	} else {
		source, err = os.ReadFile(path)
	}
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}

	tokens, err := parse.Tokenize(string(source))
	if err != nil {
		printError(errW, fmt.Errorf("%s: %w", path, err))
		return ERROR_STATUS_CODE
	}

	if printJSON {
		if tokens == nil {
			tokens = []parse.Token{}
		}
		content, err := json.Marshal(tokens)
		if err != nil {
			printError(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintf(outW, "%s\n", content)
		return 0
	}

	w := tabwriter.NewWriter(outW, 0, 4, 2, ' ', 0)
	for _, tok := range tokens {
		fmt.Fprintf(w, "%s\t%s\t%s\n", tok.Pos, tok.Type.Name(), tok)
	}
	w.Flush()
	return 0
}
