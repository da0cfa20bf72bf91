// Package prompt asks the operator yes/no questions on a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/wasilibs/go-re2"
)

// ErrNoInput is returned when input ends before an answer was typed.
var ErrNoInput = errors.New("no answer: input closed")

var affirmative = re2.MustCompile(`(?i)^\s*y(es)?\s*$`)

// Asker is the yes/no primitive used by cutoff confirmation and review.
type Asker interface {
	// Confirm shows body, asks question and reports whether the answer was affirmative.
	Confirm(question, body string) (bool, error)
}

// IsAffirmative reports whether answer is "y" or "yes" in any case.
// Everything else, including an empty line, is a decline.
func IsAffirmative(answer string) bool {
	return affirmative.MatchString(answer)
}

// Terminal is an Asker reading answers line by line.
type Terminal struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	useColors bool
}

// NewTerminal creates a terminal asker.
func NewTerminal(in io.Reader, out io.Writer, useColors bool) *Terminal {
	return &Terminal{
		in:        bufio.NewReader(in),
		out:       out,
		useColors: useColors,
	}
}

// Confirm implements Asker.
func (t *Terminal) Confirm(question, body string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if body != "" {
		fmt.Fprintf(t.out, "\n%s\n", Sanitize(body))
	}
	if t.useColors {
		color.New(color.FgYellow, color.Bold).Fprintf(t.out, "%s [y/N] ", question)
	} else {
		fmt.Fprintf(t.out, "%s [y/N] ", question)
	}

	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return IsAffirmative(line), nil
		}
		if errors.Is(err, io.EOF) {
			return false, ErrNoInput
		}
		return false, fmt.Errorf("read answer: %w", err)
	}
	return IsAffirmative(line), nil
}

// Scripted answers from a fixed list and records every question.
type Scripted struct {
	mu        sync.Mutex
	answers   []bool
	Questions []string
	Bodies    []string
}

// NewScripted creates an asker replying with answers in order.
func NewScripted(answers ...bool) *Scripted {
	return &Scripted{answers: answers}
}

// Confirm implements Asker. It returns ErrNoInput once the answers run out.
func (s *Scripted) Confirm(question, body string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Questions = append(s.Questions, question)
	s.Bodies = append(s.Bodies, body)
	if len(s.answers) == 0 {
		return false, ErrNoInput
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

// Asked returns how many questions were asked.
func (s *Scripted) Asked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Questions)
}
