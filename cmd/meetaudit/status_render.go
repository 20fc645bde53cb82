package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type kindStyle struct {
	badge string
	color text.Color
}

var kindStyles = map[statusKind]kindStyle{
	statusInfo:  {badge: "INFO", color: text.FgBlue},
	statusOK:    {badge: "OK", color: text.FgGreen},
	statusWarn:  {badge: "WARN", color: text.FgYellow},
	statusError: {badge: "ERROR", color: text.FgRed},
}

const (
	labelWidth = 20
	lineIndent = "  "
)

func styleFor(kind statusKind) kindStyle {
	if style, ok := kindStyles[kind]; ok {
		return style
	}
	return kindStyles[statusInfo]
}

// renderStatusLine prints "label: [BADGE] message", coloured as a whole.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge := "[" + styleFor(kind).badge + "]"
	if message != "" {
		badge += " " + message
	}
	return paint(renderField(label, badge), kind, colorize)
}

// renderField prints a label/value pair without a status badge.
func renderField(label, value string) string {
	return fmt.Sprintf("%s%-*s %s", lineIndent, labelWidth, label+":", value)
}

// renderBadge colours a short value by kind, e.g. a risk level.
func renderBadge(value string, kind statusKind, colorize bool) string {
	return paint(value, kind, colorize)
}

func paint(value string, kind statusKind, colorize bool) string {
	if !colorize {
		return value
	}
	return styleFor(kind).color.Sprint(value)
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(heading))
	return []string{paint(heading, statusInfo, colorize), paint(rule, statusInfo, colorize)}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
