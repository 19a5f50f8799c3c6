package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrInputClosed is returned when no more input lines can be read.
var ErrInputClosed = errors.New("input closed")

// Field is a credential the user types in.
type Field int

const (
	FieldPhoneNumber Field = iota
	FieldCode
	FieldPassword
)

func (f Field) String() string {
	switch f {
	case FieldPhoneNumber:
		return "phone number"
	case FieldCode:
		return "code"
	case FieldPassword:
		return "password"
	}
	return "field(" + fmt.Sprint(int(f)) + ")"
}

// Label is the exact prompt shown before reading f.
func (f Field) Label() string {
	switch f {
	case FieldPhoneNumber:
		return "Enter phone number: "
	case FieldCode:
		return "Enter authentication code: "
	case FieldPassword:
		return "Enter authentication password: "
	}
	return "Enter " + f.String() + ": "
}

// Secret reports whether f must not be echoed.
func (f Field) Secret() bool { return f == FieldPassword }

// Prompter supplies one line of user input per call.
type Prompter interface {
	Prompt(ctx context.Context, f Field) (string, error)
}

type readRequest struct {
	secret bool
	reply  chan readResult
}

type readResult struct {
	line string
	err  error
}

// ConsolePrompter reads answers line by line. Reads happen on a dedicated goroutine that
// serves one request at a time, so a cancelled Prompt never swallows the next answer.
type ConsolePrompter struct {
	out io.Writer
	in  *bufio.Reader
	fd  int
	tty bool

	reqs      chan readRequest
	done      chan struct{}
	closeOnce sync.Once
}

// NewConsolePrompter reads from in and writes prompts to out. When in is a terminal,
// passwords are read without echo.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	p := &ConsolePrompter{
		out:  out,
		in:   bufio.NewReader(in),
		reqs: make(chan readRequest),
		done: make(chan struct{}),
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	go p.serve()
	return p
}

func (p *ConsolePrompter) serve() {
	for {
		select {
		case <-p.done:
			return
		case req := <-p.reqs:
			line, err := p.read(req.secret)
			req.reply <- readResult{line: line, err: err}
		}
	}
}

func (p *ConsolePrompter) read(secret bool) (string, error) {
	if secret && p.tty {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *ConsolePrompter) Prompt(ctx context.Context, f Field) (string, error) {
	select {
	case <-p.done:
		return "", ErrInputClosed
	default:
	}
	fmt.Fprint(p.out, f.Label())

	req := readRequest{secret: f.Secret(), reply: make(chan readResult, 1)}
	select {
	case p.reqs <- req:
	case <-p.done:
		return "", ErrInputClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.line, res.err
	case <-p.done:
		return "", ErrInputClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the reader goroutine once its current read returns.
func (p *ConsolePrompter) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
