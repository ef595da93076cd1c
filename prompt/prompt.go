// Package prompt runs the interactive evaluation dialog: reads x and e, prints
// evaluation results and offers to save them to a result file at the end.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/reference"
	"github.com/aknopov/lnsin/session"
)

const (
	StopWord    = "Кінець"
	StopWordAlt = "end"
	CancelWord  = "*"
)

// Evaluation backend, e.g. *lnsin.Evaluator
type Computer interface {
	Compute(x, e float64) (lnsin.Result, error)
}

// Result files store, e.g. *session.Registry
type Saver interface {
	Last() string
	CanCreate() bool
	Save(name string, records []session.Record) (int, error)
}

// Optional evaluation history, e.g. *session.History
type Recorder interface {
	Add(ctx context.Context, rec session.Record) (string, error)
}

type Session struct {
	in          *bufio.Scanner
	out         io.Writer
	computer    Computer
	files       Saver
	history     Recorder
	interactive bool
	now         func() time.Time
	records     []session.Record
}

// Creates dialog reading answers from "in" and writing everything to "out"
func NewSession(in io.Reader, out io.Writer, computer Computer, files Saver) *Session {
	return &Session{
		in:          bufio.NewScanner(in),
		out:         out,
		computer:    computer,
		files:       files,
		interactive: true,
		now:         time.Now,
	}
}

// Also stores every result in the history
func (s *Session) WithHistory(history Recorder) *Session {
	s.history = history
	return s
}

// Prompts are not printed when input does not come from a terminal
func (s *Session) WithInteractive(interactive bool) *Session {
	s.interactive = interactive
	return s
}

func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Results of the current round
func (s *Session) Records() []session.Record {
	return slices.Clone(s.records)
}

// Runs one round until the stop word and the save dialog.
// Returns io.EOF when input ends.
func (s *Session) Run(ctx context.Context) error {
	s.records = nil

	for {
		xInput, err := s.ask("Enter the function argument: ")
		if err != nil {
			return err
		}
		if xInput == StopWord || strings.EqualFold(xInput, StopWordAlt) {
			return s.saveDialog()
		}

		x, err := strconv.ParseFloat(xInput, 64)
		if err != nil {
			s.println("Invalid input for x. Please enter a number or 'Кінець' to exit.")
			continue
		}

		eInput, err := s.ask("Enter the precision: ")
		if err != nil {
			return err
		}
		e, err := strconv.ParseFloat(eInput, 64)
		if err != nil {
			s.println("Invalid input for e. Please enter a number between 0 and 1.")
			continue
		}
		if !(0 < e && e < 1) {
			s.println("Precision e must be in (0;1).")
			continue
		}

		s.evaluate(ctx, x, e)
	}
}

func (s *Session) evaluate(ctx context.Context, x, e float64) {
	res, err := s.computer.Compute(x, e)
	if err != nil {
		s.println(errorMessage(err))
		return
	}

	s.printf("X: %v, Expected: %v, Actual: %v, N: %d\n", x, reference.LnAbsSinOrFloat(x), res.Value, res.Terms)
	s.printf("Computation time: %.2f seconds\n", res.Elapsed.Seconds())
	s.printf("f(x, e) = %.12f\n", res.Value)
	s.printf("N(x, e) = %d\n", res.Terms)

	rec := session.Record{Time: s.now(), X: x, E: e, Value: res.Value, Terms: res.Terms}
	s.records = append(s.records, rec)

	if s.history != nil {
		if _, err := s.history.Add(ctx, rec); err != nil {
			s.printf("History is not updated: %v\n", err)
		}
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, lnsin.ErrTimeout):
		return "Cannot achieve desired precision within reasonable time."
	case errors.Is(err, lnsin.ErrUndefinedArgument):
		return "Function undefined for x = k * pi"
	case errors.Is(err, lnsin.ErrPrecisionUnattainable):
		return "Cannot achieve desired precision with given x and e."
	case errors.Is(err, lnsin.ErrInvalidPrecision):
		return "Precision e must be in (0;1)."
	}
	return fmt.Sprintf("An error occurred: %v", err)
}

func (s *Session) saveDialog() error {
	if len(s.records) == 0 {
		s.println("No results to save.")
		return nil
	}

	for {
		answer, err := s.ask("Would you like to save the results to a file? (Yes/No): ")
		if err != nil {
			return s.notSaved(err)
		}

		switch strings.ToLower(answer) {
		case "no":
			s.println("Data not saved to file")
			return nil
		case "yes":
			return s.chooseFile()
		}
		s.println("Invalid input. Please answer 'Yes' or 'No'.")
	}
}

func (s *Session) chooseFile() error {
	last := s.files.Last()
	for last != "" {
		answer, err := s.ask(fmt.Sprintf("Save results to the file '%s'? (Yes/No): ", last))
		if err != nil {
			return s.notSaved(err)
		}

		switch strings.ToLower(answer) {
		case "yes":
			return s.save(last)
		case "no":
			last = ""
		default:
			s.println("Invalid input. Please answer 'Yes' or 'No'.")
		}
	}

	for {
		name, err := s.ask(s.namePrompt())
		if err != nil {
			return s.notSaved(err)
		}
		if name == CancelWord {
			s.println("Data not saved to file")
			return nil
		}

		err = s.save(name)
		switch {
		case errors.Is(err, session.ErrInvalidName):
			s.println("Filename must be 1 to 5 characters long, Latin/Ukrainian letters and digits only.")
		case errors.Is(err, session.ErrTooManyFiles):
			s.println("Cannot create new file. Maximum number of files reached.")
		default:
			return err
		}
	}
}

func (s *Session) namePrompt() string {
	switch {
	case s.files.Last() == "":
		return "Enter a new file name (up to 5 letters, Latin/Ukrainian letters and/or digits) or '*' to cancel and exit: "
	case s.files.CanCreate():
		return "Enter the name of an existing file or a new file (up to 5 letters, Latin/Ukrainian letters and/or digits) or '*' to cancel and exit: "
	}
	return "Enter the name of an existing file or '*' to cancel and exit: "
}

func (s *Session) save(name string) error {
	total, err := s.files.Save(name, s.records)
	if errors.Is(err, session.ErrInvalidName) || errors.Is(err, session.ErrTooManyFiles) {
		return err
	}
	if err != nil {
		s.printf("An error occurred while saving to the file: %v\n", err)
		return err
	}

	s.printf("Data saved to file '%s'. Total number of entries: %d\n", name, total)
	return nil
}

func (s *Session) notSaved(err error) error {
	s.println("Data not saved to file")
	return err
}

// Reads next trimmed line; io.EOF when input is exhausted
func (s *Session) ask(question string) (string, error) {
	if s.interactive {
		fmt.Fprint(s.out, question) //nolint:errcheck
	}
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

//nolint:errcheck
func (s *Session) println(msg string) {
	fmt.Fprintln(s.out, msg)
}

//nolint:errcheck
func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
