package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// stdin is shared so buffered input survives across prompts.
var stdin = bufio.NewReader(os.Stdin)

func readLine(in *bufio.Reader) string {
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// Confirm prompts the user with a yes/no question. Returns true for yes.
func Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", StyleWarning.Render(prompt))
	line := strings.ToLower(readLine(stdin))
	return line == "y" || line == "yes"
}

// ConfirmDanger is like Confirm but styled with the error color.
func ConfirmDanger(prompt string) bool {
	fmt.Printf("%s [y/N]: ", StyleError.Render("⚠ "+prompt))
	line := strings.ToLower(readLine(stdin))
	return line == "y" || line == "yes"
}

// AskToken shows a danger box and returns what the user typed. The caller
// compares it against the expected token; nothing is normalized beyond
// trimming the line ending.
func AskToken(warning, token string) string {
	return askToken(stdin, os.Stdout, warning, token)
}

func askToken(in *bufio.Reader, out io.Writer, warning, token string) string {
	fmt.Fprintln(out, DangerBox(warning))
	fmt.Fprintf(out, "Type %s to continue: ", StyleError.Render(token))
	return readLine(in)
}

// Prompt asks for a single line of input, showing hint when non-empty.
func Prompt(label, hint string) string {
	return prompt(stdin, os.Stdout, label, hint)
}

func prompt(in *bufio.Reader, out io.Writer, label, hint string) string {
	if hint != "" {
		fmt.Fprintf(out, "%s %s: ", StyleValue.Render(label), StyleMeta.Render("("+hint+")"))
	} else {
		fmt.Fprintf(out, "%s: ", StyleValue.Render(label))
	}
	return readLine(in)
}
