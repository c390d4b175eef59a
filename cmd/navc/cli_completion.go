package main

import (
	"os"
	"strconv"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var (
	predictSourceFiles = predict.Files("*.c0")
	completer          = CreateCompleter(func(c *Completer) *complete.Command {
		return &complete.Command{
			Sub: map[string]*complete.Command{
				BUILD_SUBCMD: {
					Flags: map[string]complete.Predictor{
						"o":         predict.Files("*.o0"),
						"symbols":   predict.Files("*.json"),
						"log-level": predict.Set{"trace", "debug", "info", "warn", "error", "disabled"},
						"S":         complete.PredictFunc(c.predictSourceFileAfterSwitch),
						"trace":     complete.PredictFunc(c.predictSourceFileAfterSwitch),
						"no-cache":  complete.PredictFunc(c.predictSourceFileAfterSwitch),
						"watch":     complete.PredictFunc(c.predictSourceFileAfterSwitch),
					},
					Args: predictSourceFiles,
				},
				TOKENIZE_SUBCMD: {
					Flags: map[string]complete.Predictor{
						"json": complete.PredictFunc(c.predictSourceFileAfterSwitch),
					},
					Args: predictSourceFiles,
				},
				BUILTINS_SUBCMD: {
					Flags: map[string]complete.Predictor{
						"json": predict.Nothing,
					},
				},
				CACHE_SUBCMD: {
					Args: predict.Set{CACHE_LS_ACTION, CACHE_CLEAR_ACTION},
				},
				CONFIG_SUBCMD: {
					Flags: map[string]complete.Predictor{
						"init": predict.Nothing,
					},
				},
				HELP_SUBCMD:                  {Args: predict.Set(SUBCOMMANDS)},
				INSTALL_COMPLETIONS_SUBCMD:   {},
				UNINSTALL_COMPLETIONS_SUBCMD: {},
			},
		}
	})
)

type Completer struct {
	*complete.Command
	currentCompLine  string
	currentCompPoint int //-1 if not retrieved
}

func CreateCompleter(create func(c *Completer) *complete.Command) *Completer {
	c := &Completer{}
	c.Command = create(c)
	return c
}

func (c *Completer) Complete(name string) {
	c.currentCompLine = os.Getenv("COMP_LINE")
	c.currentCompPoint, _ = strconv.Atoi(os.Getenv("COMP_POINT")) //ignore error because .CommandComplete will also check the value

	if c.currentCompPoint > len(c.currentCompLine) {
		c.currentCompPoint = len(c.currentCompLine)
	}

	c.Command.Complete(name)
}

func (c *Completer) beforeCursorPoint() string {
	if c.currentCompPoint < 0 {
		return c.currentCompLine
	}
	return c.currentCompLine[:c.currentCompPoint]
}

func (c *Completer) predictSourceFileAfterSwitch(prefix string) (results []string) {
	s := c.beforeCursorPoint()
	if s == "" {
		return
	}

	switch s[len(s)-1] {
	case '=':
		//The flag is a switch, it does not accept any value.
		return
	default:
		return predictSourceFiles.Predict(prefix)
	}
}
