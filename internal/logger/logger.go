package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/logrusorgru/aurora/v3"
)

// Logger is the operator-facing output of a run.
type Logger interface {
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// ColoredLogger writes one line per message, colored by level.
type ColoredLogger struct {
	out   io.Writer
	au    aurora.Aurora
	debug bool
}

var _ Logger = (*ColoredLogger)(nil)

// New creates a ColoredLogger writing to out. Debug lines are printed only
// when debug is set.
func New(out io.Writer, colors, debug bool) *ColoredLogger {
	return &ColoredLogger{
		out:   out,
		au:    aurora.NewAurora(colors),
		debug: debug,
	}
}

// ColorsEnabled reports whether colored output should be used: not disabled
// by flag and NO_COLOR unset.
func ColorsEnabled(noColorFlag bool) bool {
	if noColorFlag {
		return false
	}

	_, set := os.LookupEnv("NO_COLOR")

	return !set
}

func (c *ColoredLogger) Infof(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

func (c *ColoredLogger) Successf(format string, args ...any) {
	c.println(c.au.Green(fmt.Sprintf(format, args...)).String())
}

func (c *ColoredLogger) Warnf(format string, args ...any) {
	c.println(c.au.Yellow("warning: " + fmt.Sprintf(format, args...)).String())
}

func (c *ColoredLogger) Errorf(format string, args ...any) {
	c.println(c.au.Red(fmt.Sprintf(format, args...)).String())
}

func (c *ColoredLogger) Debugf(format string, args ...any) {
	if !c.debug {
		return
	}

	c.println(c.au.Gray(12, "debug: "+fmt.Sprintf(format, args...)).String()) //nolint:mnd // gray shade
}

func (c *ColoredLogger) println(s string) {
	_, _ = fmt.Fprintln(c.out, s)
}

// Discard returns a Logger that drops everything.
func Discard() *ColoredLogger {
	return New(io.Discard, false, false)
}
