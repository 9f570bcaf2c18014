package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusColors = map[statusKind]color.Attribute{
	statusInfo:  color.FgBlue,
	statusOK:    color.FgGreen,
	statusWarn:  color.FgYellow,
	statusError: color.FgRed,
}

func renderStatusLine(kind statusKind, message string, colorize bool) string {
	label := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if colorize {
		c := color.New(statusColors[kind])
		c.EnableColor()
		label = c.Sprint(label)
	}
	return label + " " + message
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printStatus(w io.Writer, kind statusKind, format string, args ...any) {
	fmt.Fprintln(w, renderStatusLine(kind, fmt.Sprintf(format, args...), shouldColorize(w)))
}
