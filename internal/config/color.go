package config

import (
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

var (
	FORCE_COLOR           bool
	TRUECOLOR_COLORTERM   bool
	TERM_256COLOR_CAPABLE bool
	NO_COLOR              bool
	SHOULD_COLORIZE       bool
)

func init() {
	detectColorSupport(os.LookupEnv)
}

func detectColorSupport(lookup func(string) (string, bool)) {
	FORCE_COLOR, NO_COLOR = false, false

	// FORCE COLOR

	if s, ok := lookup("FORCE_COLOR"); ok {
		FORCE_COLOR = len(s) != 0 && s != "false" && s != "0"
	}

	//TERMCOLOR

	colorterm, _ := lookup("COLORTERM")
	TRUECOLOR_COLORTERM = colorterm == "truecolor"

	//NO_COLOR

	if s, ok := lookup("NO_COLOR"); ok {
		NO_COLOR = len(s) != 0 && s != "false" && s != "0"
	}

	//TERM

	term, _ := lookup("TERM")
	TERM_256COLOR_CAPABLE = strings.Contains(term, "256color")

	SHOULD_COLORIZE = !NO_COLOR && (FORCE_COLOR || TRUECOLOR_COLORTERM || TERM_256COLOR_CAPABLE)
}

// NewOutput returns a termenv output for w, it only emits colors if SHOULD_COLORIZE is set.
func NewOutput(w io.Writer) *termenv.Output {
	profile := termenv.Ascii

	switch {
	case !SHOULD_COLORIZE:
	case TRUECOLOR_COLORTERM:
		profile = termenv.TrueColor
	case TERM_256COLOR_CAPABLE:
		profile = termenv.ANSI256
	default:
		profile = termenv.ANSI
	}

	return termenv.NewOutput(w, termenv.WithProfile(profile))
}
