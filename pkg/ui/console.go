package ui

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// ErrInputClosed is returned when input ends before an answer is read.
var ErrInputClosed = errors.New("input closed")

// Console reads operator input and renders styled output.
// It implements config.Prompter.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	// fd is the input file descriptor, or -1 when input is not a file.
	fd int

	// pending delivers the line being read when a prompt was cancelled
	// before the operator answered. The next prompt receives it.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewConsole creates a console reading from in and writing to out.
// Secret prompts are read without echo when in is a terminal.
func NewConsole(in io.Reader, out io.Writer) *Console {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &Console{in: bufio.NewReader(in), out: out, fd: fd}
}

// Out returns the output writer.
func (c *Console) Out() io.Writer {
	return c.out
}

// Interactive reports whether input comes from a terminal.
func (c *Console) Interactive() bool {
	return c.fd >= 0 && term.IsTerminal(c.fd)
}

// Ask prints label and reads one trimmed line.
// It returns ctx.Err() as soon as ctx is cancelled, even mid-read.
func (c *Console) Ask(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(c.out, "%s ", PromptStyle.Render(label+":"))
	return c.readLine(ctx)
}

// AskSecret prints label and reads one line without echo.
func (c *Console) AskSecret(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(c.out, "%s ", PromptStyle.Render(label+":"))
	if !c.Interactive() {
		return c.readLine(ctx)
	}

	state, err := term.GetState(c.fd)
	if err != nil {
		return "", fmt.Errorf("failed to read terminal state: %w", err)
	}
	done := make(chan lineResult, 1)
	go func() {
		secret, err := term.ReadPassword(c.fd)
		done <- lineResult{line: string(secret), err: err}
	}()

	select {
	case r := <-done:
		fmt.Fprintln(c.out)
		if r.err != nil {
			return "", fmt.Errorf("failed to read secret: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	case <-ctx.Done():
		// ReadPassword disables echo until it returns
		_ = term.Restore(c.fd, state)
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	}
}

// Confirm asks a yes/no question. Only "y" or "yes" confirm.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(c.out, "\n%s %s ", PromptStyle.Render(question), HelpStyle.Render("[y/N]"))
	answer, err := c.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine waits for the next input line or for ctx to be done. The read
// itself runs in a goroutine because a blocked read cannot be interrupted.
func (c *Console) readLine(ctx context.Context) (string, error) {
	if c.pending == nil {
		ch := make(chan lineResult, 1)
		c.pending = ch
		go func() {
			line, err := c.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}

	select {
	case r := <-c.pending:
		c.pending = nil
		return parseLine(r)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func parseLine(r lineResult) (string, error) {
	if r.err != nil {
		if errors.Is(r.err, io.EOF) && r.line != "" {
			return strings.TrimSpace(r.line), nil
		}
		if errors.Is(r.err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", fmt.Errorf("failed to read input: %w", r.err)
	}
	return strings.TrimSpace(r.line), nil
}

// Success prints a success line.
func (c *Console) Success(message string) {
	fmt.Fprintln(c.out, SuccessStyle.Render("  [+] "+message))
}

// Warn prints a warning line.
func (c *Console) Warn(message string) {
	fmt.Fprintln(c.out, WarningStyle.Render("  [!] "+message))
}

// Error prints an error line.
func (c *Console) Error(message string) {
	fmt.Fprintln(c.out, ErrorStyle.Render("  [X] "+message))
}

// Info prints an informational line.
func (c *Console) Info(message string) {
	fmt.Fprintf(c.out, "  %s %s\n", MenuKeyStyle.Render("*"), message)
}

// Notice prints a highlighted notice surrounded by blank lines.
func (c *Console) Notice(message string) {
	fmt.Fprintf(c.out, "\n%s\n\n", NoticeStyle.Render(message))
}

// Attempt prints one bind attempt that did not converge. When no status was
// received, reason and detail describe the failure instead.
func (c *Console) Attempt(number int, code int, status, reason, detail string, wait time.Duration) {
	var what string
	switch {
	case status != "":
		what = "received " + StatusCodeStyle(code).Render(status)
	case code != 0:
		what = "received " + StatusCodeStyle(code).Render(fmt.Sprintf("status %d", code))
	case detail != "":
		what = ErrorStyle.Render(reason) + ": " + detail
	default:
		what = ErrorStyle.Render(reason)
	}
	fmt.Fprintf(c.out, "  %s attempt %d: %s, retrying in %s\n",
		WarningStyle.Render("[~]"), number, what, wait)
}

// Field is one labelled value.
type Field struct {
	Label string
	Value string
}

// Fields prints a titled list of labelled values.
func (c *Console) Fields(title string, fields []Field) {
	if title != "" {
		fmt.Fprintf(c.out, "\n%s\n", TitleStyle.Render(title))
	}
	width := 0
	for _, f := range fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range fields {
		pad := strings.Repeat(" ", width-len(f.Label))
		fmt.Fprintf(c.out, " :: %s%s : %s\n", LabelStyle.Render(f.Label), pad, ValueStyle.Render(f.Value))
	}
}

// Payload prints a response body, indenting it when it is JSON.
func (c *Console) Payload(body []byte) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err == nil {
		body = buf.Bytes()
	}
	fmt.Fprintf(c.out, "\n%s\n\n", body)
}
