package fuzzy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// None is returned by a Chooser when no option fits.
const None = -1

// Column is a display column of the selection table.
type Column struct {
	Name  string
	Width int
}

// Table is a set of options rendered in fixed-width columns.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// Render writes a " #:" header and one numbered line per row. Cells are
// truncated or padded to their column width.
func (t Table) Render(w io.Writer) {
	var b strings.Builder
	b.WriteString(" #:")
	for _, c := range t.Columns {
		b.WriteString("  " + fit(c.Name, c.Width))
	}
	fmt.Fprintln(w, b.String())

	for i, row := range t.Rows {
		b.Reset()
		for ci, c := range t.Columns {
			cell := ""
			if ci < len(row) {
				cell = row[ci]
			}
			b.WriteString("  " + fit(cell, c.Width))
		}
		fmt.Fprintf(w, "%2d:%s\n", i+1, b.String())
	}
}

func fit(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		r = r[:width]
	}
	return string(r) + strings.Repeat(" ", width-len(r))
}

// Chooser picks one row of a table for query. It returns the 0-based row
// index or None.
type Chooser interface {
	Choose(query string, t Table) (int, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(query string, t Table) (int, error)

func (f ChooserFunc) Choose(query string, t Table) (int, error) { return f(query, t) }

// NeverChoose answers None to every question.
var NeverChoose Chooser = ChooserFunc(func(string, Table) (int, error) { return None, nil })

// ErrNoInput is returned when the prompt input ends before an answer.
var ErrNoInput = errors.New("no answer: input closed")

// Prompt asks a human on In/Out. Answers are a 1-based row number or N.
type Prompt struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewPrompt builds a Prompt reading from in and writing to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{In: bufio.NewReader(in), Out: out}
}

// TerminalChooser prompts on stdin/stdout when stdin is a terminal and
// otherwise never chooses, so unattended runs leave rows unresolved.
func TerminalChooser() Chooser {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return NeverChoose
	}
	return NewPrompt(os.Stdin, os.Stdout)
}

func (p *Prompt) Choose(query string, t Table) (int, error) {
	fmt.Fprintf(p.Out, "\nChoose match for '%s':\n", query)
	t.Render(p.Out)
	for {
		fmt.Fprint(p.Out, "Which number or 'N' for none: ")
		line, err := p.In.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer == "" && err != nil {
			if errors.Is(err, io.EOF) {
				return None, ErrNoInput
			}
			return None, err
		}
		if strings.EqualFold(answer, "n") {
			return None, nil
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 1 && n <= len(t.Rows) {
			return n - 1, nil
		}
		fmt.Fprintf(p.Out, "'%s' is not between 1 and %d\n", answer, len(t.Rows))
		if err != nil {
			return None, ErrNoInput
		}
	}
}

// Select extracts the best limit candidates for query, renders them with
// row(candidate) under cols and asks ch. ok is false when nothing was chosen.
func Select(ch Chooser, query string, candidates []Candidate, limit int, cols []Column, row func(Match) []string) (m Match, ok bool, err error) {
	matches := Extract(query, candidates, limit)
	if len(matches) == 0 {
		return Match{}, false, nil
	}
	t := Table{Columns: cols}
	for _, mm := range matches {
		t.Rows = append(t.Rows, row(mm))
	}
	idx, err := ch.Choose(query, t)
	if err != nil {
		return Match{}, false, err
	}
	if idx == None || idx < 0 || idx >= len(matches) {
		return Match{}, false, nil
	}
	return matches[idx], true, nil
}
