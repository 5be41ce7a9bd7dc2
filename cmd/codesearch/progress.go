package main

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/bull/codebase-embeddings/internal/indexer"
)

var barTheme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// stageProgress draws a counted bar for per-entity stages and a spinner for
// stages that only report completion.
type stageProgress struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
}

func newProgress(enabled bool) indexer.ProgressReporter {
	if !enabled {
		return nil
	}
	return &stageProgress{}
}

func progressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (p *stageProgress) Start(stage string, total int) {
	if total <= 0 {
		return
	}
	if stage == indexer.StageDescribe {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(stage),
			progressbar.OptionSetWidth(32),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(barTheme),
		)
		return
	}

	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(9),
		progressbar.OptionSetDescription(stage),
		progressbar.OptionSetWidth(10),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(barTheme),
	)
	p.done = make(chan struct{})
	go spin(p.bar, p.done)
}

func spin(bar *progressbar.ProgressBar, done <-chan struct{}) {
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = bar.Add(1)
		case <-done:
			return
		}
	}
}

func (p *stageProgress) Increment() {
	if p.bar == nil || p.done != nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *stageProgress) Finish() {
	if p.bar == nil {
		return
	}
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	_ = p.bar.Finish()
	p.bar = nil
}
