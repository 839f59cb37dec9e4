// Package wizard implements the interactive setup flow for the trading
// parameters. It is a small state machine driven by line input, so tests
// can feed it a scripted sequence instead of a real terminal.
package wizard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/niftyshop/nifty-shop-bot/internal/console"
	"github.com/niftyshop/nifty-shop-bot/pkg/config"
)

// ErrAborted is returned when input ends before the candidate document is
// persisted. The previously persisted document, if any, stays untouched.
var ErrAborted = errors.New("setup aborted before saving")

// State identifies where the wizard currently is in its flow.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateConfirming
	StatePersisting
	StateDone
)

// Wizard drives first-run setup and explicit reconfiguration. Each
// parameter is collected in schema order; hard-bound violations and parse
// failures re-prompt, soft-bound values require an explicit confirmation,
// and the store is only touched once every field has been accepted.
type Wizard struct {
	in    *bufio.Reader
	out   io.Writer
	store *config.Store
	log   *console.Logger
	state State
}

// New creates a wizard reading prompts' answers from in and writing all
// output to out.
func New(in io.Reader, out io.Writer, store *config.Store, log *console.Logger) *Wizard {
	return &Wizard{
		in:    bufio.NewReader(in),
		out:   out,
		store: store,
		log:   log,
		state: StateIdle,
	}
}

// State returns the wizard's current state.
func (w *Wizard) State() State {
	return w.state
}

// Run collects every parameter, then persists the resulting document.
// current seeds the prompt defaults and is never mutated; the returned
// document is a fully validated candidate. A save failure downgrades to a
// warning and an in-memory document, never an error.
func (w *Wizard) Run(current *config.Document) (*config.Document, error) {
	w.printWelcome(current)

	candidate := current.Clone()
	for _, spec := range config.Specs() {
		if err := w.collectField(spec, candidate); err != nil {
			w.state = StateIdle
			return nil, err
		}
	}

	w.state = StatePersisting
	w.printSummary(candidate)

	if err := w.store.Save(candidate); err != nil {
		// Degraded mode: the session keeps the in-memory document. This
		// is not a transient error, so there is no retry loop.
		w.log.Warn("Configuration could not be saved (%v)", err)
		w.log.Warn("Continuing with in-memory settings only; changes will be lost on exit")
	} else {
		w.log.Success("Configuration saved to %s", w.store.Path())
	}

	w.state = StateDone
	return candidate, nil
}

// collectField runs the CollectingField/Confirming cycle for one
// parameter until a value is accepted into the candidate.
func (w *Wizard) collectField(spec config.ParameterSpec, candidate *config.Document) error {
	def, _ := candidate.Value(spec.Name)

	for {
		w.state = StateCollecting
		value, err := w.promptValue(spec, def)
		if err != nil {
			return err
		}

		verdict := spec.Validate(value)
		switch verdict.Kind {
		case config.RejectedHard:
			w.log.Error("%s", verdict.Reason)
			continue

		case config.NeedsConfirmation:
			w.state = StateConfirming
			confirmed, err := w.confirmValue(spec, value, verdict.Reason)
			if err != nil {
				return err
			}
			if !confirmed {
				// The declined value is discarded entirely.
				w.log.Info("Value discarded, please enter a new one")
				continue
			}
		}

		return candidate.SetValue(spec.Name, value)
	}
}

// promptValue asks for one raw value, re-prompting until the input parses
// as a number of the parameter's kind. An empty line keeps the default.
func (w *Wizard) promptValue(spec config.ParameterSpec, def float64) (float64, error) {
	for {
		fmt.Fprintf(w.out, "%s [%s]: ", spec.Prompt, spec.FormatValue(def))
		input, err := w.readLine()
		if err != nil {
			return 0, ErrAborted
		}
		if input == "" {
			return def, nil
		}

		if spec.Kind == config.KindInteger {
			n, err := strconv.Atoi(input)
			if err != nil {
				w.log.Error("'%s' is not a whole number for %s", input, spec.Name)
				continue
			}
			return float64(n), nil
		}

		v, err := strconv.ParseFloat(input, 64)
		if err != nil {
			w.log.Error("'%s' is not a number for %s", input, spec.Name)
			continue
		}
		return v, nil
	}
}

// confirmValue presents the soft-bound warning and asks for an explicit
// yes/no. Anything other than an affirmative answer declines.
func (w *Wizard) confirmValue(spec config.ParameterSpec, value float64, reason string) (bool, error) {
	w.log.Warn("%s", reason)
	fmt.Fprintf(w.out, "Keep %s = %s anyway? (y/N): ", spec.Name, spec.FormatValue(value))
	input, err := w.readLine()
	if err != nil {
		return false, ErrAborted
	}
	switch strings.ToLower(input) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) printWelcome(current *config.Document) {
	w.log.Header("Trading Parameters Setup")
	w.log.Info("Press Enter to keep the value shown in brackets")

	if w.store.Exists() {
		w.printDocument("CURRENT CONFIGURATION", current)
	}
}

func (w *Wizard) printSummary(candidate *config.Document) {
	w.printDocument("CONFIGURATION SUMMARY", candidate)
}

func (w *Wizard) printDocument(title string, doc *config.Document) {
	PrintDocument(w.out, title, doc)
}

// PrintDocument renders a configuration document as a titled table, the
// same presentation the wizard uses for its current-config and summary
// views.
func PrintDocument(out io.Writer, title string, doc *config.Document) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	for _, spec := range config.Specs() {
		v, _ := doc.Value(spec.Name)
		t.AppendRow(table.Row{spec.Name, spec.FormatValue(v)})
	}
	if !doc.LastUpdated.IsZero() {
		t.AppendSeparator()
		t.AppendRow(table.Row{"last updated", doc.LastUpdated.Format("2006-01-02 15:04:05")})
	}
	t.Render()
	fmt.Fprintln(out)
}
