package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/navmlang/navc/internal/core"
)

// moduleSymbols is the JSON summary written by the -symbols flag.
type moduleSymbols struct {
	Globals   []globalSymbol   `json:"globals"`
	Functions []functionSymbol `json:"functions"`
}

type globalSymbol struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	Constant bool   `json:"constant"`
	Value    string `json:"value,omitempty"` //payload of function names and string literals
}

type functionSymbol struct {
	Slot         int      `json:"slot"`
	NameSlot     int      `json:"nameSlot"`
	Name         string   `json:"name"`
	ReturnType   string   `json:"returnType"`
	Params       []string `json:"params"`
	Locals       int      `json:"locals"`
	Instructions int      `json:"instructions"`
}

func newModuleSymbols(prog *core.Program) moduleSymbols {
	symbols := moduleSymbols{
		Globals:   []globalSymbol{},
		Functions: []functionSymbol{},
	}

	for _, global := range prog.Globals {
		symbol := globalSymbol{
			Slot:     global.Offset,
			Name:     global.Name,
			Constant: global.Constant,
			Value:    string(global.Payload),
		}
		if global.Payload == nil {
			symbol.Type = global.Type.String()
		}
		symbols.Globals = append(symbols.Globals, symbol)
	}

	for _, fn := range prog.Functions {
		params := []string{}
		for _, typ := range fn.ParamTypes() {
			params = append(params, typ.String())
		}

		symbols.Functions = append(symbols.Functions, functionSymbol{
			Slot:         fn.Slot,
			NameSlot:     fn.NameSlot,
			Name:         fn.Name,
			ReturnType:   fn.ReturnType.String(),
			Params:       params,
			Locals:       fn.LocalCount,
			Instructions: fn.InstructionCount(),
		})
	}
	return symbols
}

func (b *builder) writeSymbols(prog *core.Program) error {
	content, err := json.MarshalIndent(newModuleSymbols(prog), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal the symbols: %w", err)
	}
	content = append(content, '\n')

	if b.options.symbolsPath == STDIO_PATH {
		_, err = b.outW.Write(content)
		return err
	}
	return os.WriteFile(b.options.symbolsPath, content, OUTPUT_FILE_PERM)
}
