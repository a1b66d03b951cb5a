// Package logger writes leveled, optionally colored log lines and request timings.
package logger

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fatih/color"
)

// SlowThreshold is the millisecond value above which a request is reported as slow.
const SlowThreshold = 300

var units = []string{"ns", "μs", "ms"}

// Logger prefixes each line with a level tag. Tags are colored when enabled.
type Logger struct {
	out     *log.Logger
	info    *color.Color
	success *color.Color
	warn    *color.Color
	err     *color.Color
}

// New returns a Logger writing to w.
func New(w io.Writer, colored bool) *Logger {
	l := &Logger{
		out:     log.New(w, "", log.LstdFlags),
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		err:     color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{l.info, l.success, l.warn, l.err} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return l
}

// Default returns a Logger on the terminal's stdout, colored unless the
// output is not a terminal or NO_COLOR is set.
func Default() *Logger {
	return New(color.Output, !color.NoColor)
}

func (l *Logger) print(c *color.Color, tag, format string, args ...any) {
	l.out.Printf("%s %s", c.Sprint(tag), fmt.Sprintf(format, args...))
}

// Infof logs an informational line.
func (l *Logger) Infof(format string, args ...any) { l.print(l.info, "[info]", format, args...) }

// Successf logs a line marking a completed step.
func (l *Logger) Successf(format string, args ...any) { l.print(l.success, "[ok]", format, args...) }

// Warnf logs a warning.
func (l *Logger) Warnf(format string, args ...any) { l.print(l.warn, "[warn]", format, args...) }

// Errorf logs an error that did not stop the process.
func (l *Logger) Errorf(format string, args ...any) { l.print(l.err, "[error]", format, args...) }

// Request logs how long path took to serve for remoteAddr. Requests slower
// than SlowThreshold milliseconds get an extra warning line.
func (l *Logger) Request(remoteAddr, path string, elapsed time.Duration) {
	value, unit := magnitude(elapsed)
	l.Infof("%s - %s - %d%s", remoteAddr, path, int64(value), unit)
	if unit == "ms" && value > SlowThreshold {
		l.Warnf("slow response: %s took %dms", path, int64(value))
	}
}

// Format scales elapsed to ns, μs or ms, dividing by 1000 while the value
// exceeds 1000, and returns the truncated value with its unit.
func Format(elapsed time.Duration) (int64, string) {
	value, unit := magnitude(elapsed)
	return int64(value), unit
}

func magnitude(elapsed time.Duration) (float64, string) {
	value := float64(elapsed.Nanoseconds())
	unit := units[0]
	for i := 1; i < len(units) && value > 1000; i++ {
		value /= 1000
		unit = units[i]
	}
	return value, unit
}
