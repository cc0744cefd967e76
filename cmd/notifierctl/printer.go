package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

func success(format string, a ...any) {
	green.Printf("✓ %s\n", fmt.Sprintf(format, a...))
}

func warning(format string, a ...any) {
	yellow.Printf("! %s\n", fmt.Sprintf(format, a...))
}

// failure prints title and hint to stderr and returns an error for cobra.
func failure(title, hint string) error {
	red.Fprintf(os.Stderr, "%s\n", title)
	if hint != "" {
		fmt.Fprintf(os.Stderr, "%s\n", hint)
	}
	return fmt.Errorf("%s", title)
}

func field(name string, value any) {
	cyan.Printf("%-12s", name)
	if s, ok := value.(string); ok && s == "" {
		faint.Println("-")
		return
	}
	fmt.Println(value)
}
