package main

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
)

const (
	BUILD_SUBCMD                 = "build"
	TOKENIZE_SUBCMD              = "tokenize"
	BUILTINS_SUBCMD              = "builtins"
	CACHE_SUBCMD                 = "cache"
	CONFIG_SUBCMD                = "config"
	INSTALL_COMPLETIONS_SUBCMD   = "install-completions"
	UNINSTALL_COMPLETIONS_SUBCMD = "uninstall-completions"
	HELP_SUBCMD                  = "help"
)

var (
	SUBCOMMANDS = []string{
		BUILD_SUBCMD, TOKENIZE_SUBCMD, BUILTINS_SUBCMD, CACHE_SUBCMD, CONFIG_SUBCMD,
		INSTALL_COMPLETIONS_SUBCMD, UNINSTALL_COMPLETIONS_SUBCMD, HELP_SUBCMD,
	}

	HELP_SUBCMD_EQUIVALENTS = []string{"--help", "-help", "-h"}

	CLI_SUBCOMMAND_DESCRIPTIONS = [][2]string{
		{BUILD_SUBCMD, "compile c0 source files into navm o0 modules"},
		{TOKENIZE_SUBCMD, "print the tokens of a c0 source file"},
		{BUILTINS_SUBCMD, "list the standard library functions"},
		{CACHE_SUBCMD, "list (ls) or remove (clear) the cached modules"},
		{CONFIG_SUBCMD, "show the configuration, -init creates the config file"},

		{INSTALL_COMPLETIONS_SUBCMD, "install CLI completions by addding the completion command to the detected rc file (supported shells are bash, zsh and fish)"},
		{UNINSTALL_COMPLETIONS_SUBCMD, "uninstall CLI completions by removing the completion command from the detected rc file"},
		{HELP_SUBCMD, "show the general help or command-specific help"},
	}

	CLI_SUBCOMMAND_DESCRIPTION_MAP = map[string]string{}

	NAVC_CMD_HELP = "commands:\n"
)

func init() {
	for _, entry := range CLI_SUBCOMMAND_DESCRIPTIONS {
		cmd, desc := entry[0], entry[1]
		CLI_SUBCOMMAND_DESCRIPTION_MAP[cmd] = desc
		NAVC_CMD_HELP += "\t" + cmd + " - " + desc + "\n"
	}
	NAVC_CMD_HELP += "\nType `navc help <command>` to get command-specific help.\n"
}

// moveFlagsStart moves the flags before the positional arguments, the flag package stops at the first non-flag.
// A flag value given as a separate argument (-o out) is moved along with its flag.
func moveFlagsStart(flags *flag.FlagSet, args []string) []string {
	var (
		flagArgs       []string
		positionalArgs []string
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positionalArgs = append(positionalArgs, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positionalArgs = append(positionalArgs, arg)
			continue
		}

		flagArgs = append(flagArgs, arg)

		name := arg[1:]
		if name[0] == '-' {
			name = name[1:]
		}
		if strings.Contains(name, "=") {
			continue
		}
		if f := flags.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}

	return append(flagArgs, positionalArgs...)
}

func isBoolFlag(f *flag.Flag) bool {
	boolFlag, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && boolFlag.IsBoolFlag()
}

func showHelp(flags *flag.FlagSet, args []string, out io.Writer) bool {
	//only show help
	if slices.ContainsFunc(args, func(arg string) bool { return slices.Contains(HELP_SUBCMD_EQUIVALENTS, arg) }) {

		cmd := flags.Name()
		if desc, ok := CLI_SUBCOMMAND_DESCRIPTION_MAP[cmd]; ok {
			fmt.Fprintln(out, desc)
		}

		flags.SetOutput(out)
		fmt.Fprint(out, "\noptions:\n")
		flags.PrintDefaults()

		return true
	}

	return false
}
