package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"unicode"

	"github.com/navmlang/navc/internal/utils"
	"github.com/posener/complete/v2/install"
)

const (
	ERROR_STATUS_CODE = 1

	COMMAND_NAME = "navc"
)

func main() {
	//handle completions
	completer.Complete(COMMAND_NAME)

	statusCode := _main(os.Args, os.Stdin, os.Stdout, os.Stderr)
	if statusCode != 0 {
		os.Exit(statusCode)
	}
}

func _main(args []string, inR io.Reader, outW io.Writer, errW io.Writer) (statusCode int) {
	if len(args) == 1 { //no subcommand specified
		fmt.Fprint(errW, "missing command\n"+NAVC_CMD_HELP)
		return ERROR_STATUS_CODE
	}

	mainSubCommand := args[1]
	mainSubCommandArgs := args[2:]

	//if the command has the shape help <subcommand> ... we modify the arguments to ask the subcommand to print its help message.
	if mainSubCommand == HELP_SUBCMD && len(mainSubCommandArgs) > 0 && mainSubCommandArgs[0] != "" && unicode.IsLetter(rune(mainSubCommandArgs[0][0])) {
		mainSubCommand = mainSubCommandArgs[0]
		mainSubCommandArgs = []string{"-h"}
	}

	if slices.Contains(HELP_SUBCMD_EQUIVALENTS, mainSubCommand) {
		mainSubCommand = HELP_SUBCMD
	}

	//unknown command
	if !slices.Contains(SUBCOMMANDS, mainSubCommand) {
		fmt.Fprintf(errW, "unknown command '%s'", mainSubCommand)

		closest, _, ok := utils.FindClosestString(SUBCOMMANDS, mainSubCommand, 2)
		if ok {
			fmt.Fprintf(errW, ", did you mean '%s' ?\n", closest)
		} else {
			fmt.Fprint(errW, "\n"+NAVC_CMD_HELP)
		}
		return ERROR_STATUS_CODE
	}

	switch mainSubCommand {
	case HELP_SUBCMD:
		fmt.Fprint(outW, NAVC_CMD_HELP)
		return
	case INSTALL_COMPLETIONS_SUBCMD:
		err := install.Install(COMMAND_NAME)
		if err != nil {
			fmt.Fprintln(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintln(outW, "installed")
		return
	case UNINSTALL_COMPLETIONS_SUBCMD:
		err := install.Uninstall(COMMAND_NAME)
		if err != nil {
			fmt.Fprintln(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintln(outW, "uninstalled")
		return
	case BUILD_SUBCMD:
		return BuildModules(mainSubCommand, mainSubCommandArgs, inR, outW, errW)
	case TOKENIZE_SUBCMD:
		return TokenizeSource(mainSubCommand, mainSubCommandArgs, inR, outW, errW)
	case BUILTINS_SUBCMD:
		return ListBuiltins(mainSubCommand, mainSubCommandArgs, outW, errW)
	case CACHE_SUBCMD:
		return ManageCache(mainSubCommand, mainSubCommandArgs, outW, errW)
	case CONFIG_SUBCMD:
		return ShowConfig(mainSubCommand, mainSubCommandArgs, outW, errW)
	}

	panic(fmt.Errorf("subcommand %s is not handled", mainSubCommand))
}
