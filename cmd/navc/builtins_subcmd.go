package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/navmlang/navc/internal/core"
)

type builtinJSON struct {
	Name        string   `json:"name"`
	Instruction string   `json:"instruction"`
	Params      []string `json:"params"`
	ReturnType  string   `json:"returnType"`
}

func ListBuiltins(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)

	var printJSON bool
	flags.BoolVar(&printJSON, "json", false, "print the builtins as a JSON array")

	if showHelp(flags, mainSubCommandArgs, outW) {
		return 0
	}

	if err := flags.Parse(mainSubCommandArgs); err != nil {
		return ERROR_STATUS_CODE
	}

	names := core.BuiltinNames()

	if !printJSON {
		for _, name := range names {
			builtin := core.BUILTINS[name]
			fmt.Fprintf(outW, "%s\t(%s)\n", builtin.Signature(), builtin.Op)
		}
		return 0
	}

	list := make([]builtinJSON, 0, len(names))
	for _, name := range names {
		builtin := core.BUILTINS[name]
		params := []string{}
		for _, param := range builtin.Params {
			params = append(params, param.String())
		}
		list = append(list, builtinJSON{
			Name:        name,
			Instruction: builtin.Op.String(),
			Params:      params,
			ReturnType:  builtin.ReturnType.String(),
		})
	}

	content, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		printError(errW, err)
		return ERROR_STATUS_CODE
	}
	fmt.Fprintf(outW, "%s\n", content)
	return 0
}
