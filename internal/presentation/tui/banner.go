package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the staffgate banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"      _         __  __             _       ", "#34d399"},
		{"  ___| |_ __ _ / _|/ _| __ _  __ _| |_ ___ ", "#2dd4bf"},
		{" / __| __/ _` | |_| |_ / _` |/ _` | __/ _ \\", "#22d3ee"},
		{" \\__ \\ || (_| |  _|  _| (_| | (_| | ||  __/", "#38bdf8"},
		{" |___/\\__\\__,_|_| |_|  \\__, |\\__,_|\\__\\___|", "#60a5fa"},
		{"                       |___/               ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String(" "+version).Faint())
	fmt.Fprintln(w)
}
