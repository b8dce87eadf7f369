package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/korpling/annatto/pkg/status"
)

const progressBarWidth = 40

// progressBar renders the conversion progress as a single ANSI bar on
// stderr. Steps with a known total contribute fractionally; steps without
// one count when they are done.
type progressBar struct {
	out      io.Writer
	steps    []status.StepID
	fraction map[status.StepID]float64
	done     map[status.StepID]bool
	visible  bool
}

func newProgressBar(out io.Writer) *progressBar {
	return &progressBar{
		out:      out,
		fraction: make(map[status.StepID]float64),
		done:     make(map[status.StepID]bool),
	}
}

func (b *progressBar) setSteps(steps []status.StepID) {
	b.steps = steps
	b.render()
}

func (b *progressBar) progress(p status.Progress) {
	if p.TotalWork == 0 {
		// Indeterminate step; it counts when it is done.
		return
	}
	fraction := float64(p.FinishedWork) / float64(p.TotalWork)
	if fraction > 1 {
		fraction = 1
	}
	b.fraction[p.ID] = fraction
	b.render()
}

func (b *progressBar) stepDone(id status.StepID) {
	b.done[id] = true
	b.fraction[id] = 1
	b.render()
}

// println prints a message above the bar, keeping the bar on the last line.
func (b *progressBar) println(msg string) {
	b.clear()
	fmt.Fprintln(b.out, msg)
	b.render()
}

func (b *progressBar) render() {
	if len(b.steps) == 0 {
		return
	}
	var sum float64
	doneSteps := 0
	for _, id := range b.steps {
		sum += b.fraction[id]
		if b.done[id] {
			doneSteps++
		}
	}
	overall := sum / float64(len(b.steps))
	filled := int(overall * progressBarWidth)
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	b.clear()
	fmt.Fprintf(b.out, "[%s%s] %3.0f%% (%d/%d steps)",
		strings.Repeat("=", filled),
		strings.Repeat(" ", progressBarWidth-filled),
		overall*100, doneSteps, len(b.steps))
	b.visible = true
}

func (b *progressBar) clear() {
	if b.visible {
		fmt.Fprint(b.out, "\r\x1b[2K")
		b.visible = false
	}
}

func (b *progressBar) finish(label string) {
	b.clear()
	fmt.Fprintln(b.out, label)
}
