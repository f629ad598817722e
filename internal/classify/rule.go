package classify

import (
	"time"

	"github.com/nao1215/lure/internal/model"
)

const (
	// DefaultWindow is the number of most recent requests inspected by the
	// timing rule.
	DefaultWindow = 5

	// DefaultBotSpan is the span below which a full window is machine-speed.
	DefaultBotSpan = 2 * time.Second

	// DefaultMaxClients bounds how many distinct addresses keep a history.
	DefaultMaxClients = 65536
)

// Classify applies the default timing rule to history, oldest first.
//
//   - a detected tool yields scanner
//   - at least DefaultWindow entries whose last DefaultWindow span less
//     than DefaultBotSpan yields bot
//   - anything else yields human
//
// A zero timestamp inside the window disables the timing rule.
func Classify(history []time.Time, tool model.Tool) model.Classification {
	return classifyWindow(history, tool, DefaultWindow, DefaultBotSpan)
}

func classifyWindow(history []time.Time, tool model.Tool, window int, span time.Duration) model.Classification {
	if tool.Detected() {
		return model.ClassificationScanner
	}
	if len(history) < window {
		return model.ClassificationHuman
	}

	recent := history[len(history)-window:]
	earliest, latest := recent[0], recent[0]
	for _, ts := range recent {
		if ts.IsZero() {
			return model.ClassificationHuman
		}
		if ts.Before(earliest) {
			earliest = ts
		}
		if ts.After(latest) {
			latest = ts
		}
	}

	if latest.Sub(earliest) < span {
		return model.ClassificationBot
	}
	return model.ClassificationHuman
}
