package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/kr/text"
)

// maxLineLength is the maximum width of any line.
const maxLineLength int = 72

// genUsage formats a command's help text: the usage synopsis first,
// then every flag with its wrapped description.
func genUsage(usage string, flags *flag.FlagSet) string {
	out := new(bytes.Buffer)
	out.WriteString(strings.TrimSpace(usage))
	out.WriteString("\n")
	out.WriteString("\n")

	if flags != nil {
		printTitle(out, "Command Options")
		flags.VisitAll(func(f *flag.Flag) {
			printFlag(out, f)
		})
	}

	return strings.TrimRight(out.String(), "\n")
}

// printTitle prints a consistently formatted title to the given writer.
func printTitle(w io.Writer, s string) {
	fmt.Fprintf(w, "%s\n\n", s)
}

// printFlag prints a single flag to the given writer.
func printFlag(w io.Writer, f *flag.Flag) {
	example, _ := flag.UnquoteUsage(f)
	if example != "" {
		fmt.Fprintf(w, "  -%s=<%s>\n", f.Name, example)
	} else {
		fmt.Fprintf(w, "  -%s\n", f.Name)
	}

	indented := wrapAtLength(f.Usage, 5)
	fmt.Fprintf(w, "%s\n\n", indented)
}

// wrapAtLength wraps the given text to maxLineLength, indenting every
// line by the given left padding.
func wrapAtLength(s string, pad int) string {
	wrapped := text.Wrap(s, maxLineLength-pad)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.Repeat(" ", pad) + line
	}
	return strings.Join(lines, "\n")
}
