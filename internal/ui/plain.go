package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/cali-dev/cali/internal/interaction"
)

// Plain prompts line by line. It is used when stdin or stdout is not a
// terminal.
type Plain struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer

	// lines carries the result of the one in-flight read. A read abandoned
	// by a cancelled prompt is picked up by the next one.
	lines   chan lineResult
	reading bool
}

type lineResult struct {
	line string
	err  error
}

func NewPlain(in io.Reader, out io.Writer) *Plain {
	return &Plain{in: in, reader: bufio.NewReader(in), out: out, lines: make(chan lineResult, 1)}
}

func (p *Plain) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !p.reading {
		p.reading = true
		go func() {
			line, err := p.reader.ReadString('\n')
			p.lines <- lineResult{line: line, err: err}
		}()
	}

	var r lineResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r = <-p.lines:
		p.reading = false
	}

	line, err := r.line, r.err
	if errors.Is(err, io.EOF) {
		if line == "" {
			return "", interaction.ErrCancelled
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Plain) Select(ctx context.Context, message string, options []string) (string, error) {
	fmt.Fprintf(p.out, "%s %s\n", symbolActive, message)
	for i, opt := range options {
		fmt.Fprintf(p.out, "%s %d) %s\n", symbolStep, i+1, opt)
	}
	for {
		fmt.Fprintf(p.out, "%s ", symbolStep)
		line, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, opt := range options {
			if strings.EqualFold(opt, line) {
				return opt, nil
			}
		}
		fmt.Fprintf(p.out, "%s pick a number between 1 and %d\n", symbolStep, len(options))
	}
}

func (p *Plain) Text(ctx context.Context, message, placeholder string) (string, error) {
	fmt.Fprintf(p.out, "%s %s\n", symbolActive, message)
	if placeholder != "" {
		fmt.Fprintf(p.out, "%s (%s)\n", symbolStep, placeholder)
	}
	fmt.Fprintf(p.out, "%s ", symbolStep)
	return p.readLine(ctx)
}

func (p *Plain) Confirm(ctx context.Context, message string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s %s [Y/n] ", symbolActive, message)
		line, err := p.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "", "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// Password reads without echo when stdin is a terminal.
func (p *Plain) Password(ctx context.Context, message string) (string, error) {
	fmt.Fprintf(p.out, "%s %s\n%s ", symbolActive, message, symbolStep)
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return p.readLine(ctx)
}

func (p *Plain) Step(message string) {
	fmt.Fprintf(p.out, "%s %s\n", symbolDone, message)
}
