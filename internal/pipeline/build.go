package pipeline

import (
	"log/slog"

	"github.com/nao1215/lure/internal/classify"
	"github.com/nao1215/lure/internal/metrics"
	"github.com/nao1215/lure/internal/model"
)

// Deps are the collaborators shared by every service pipeline.
// Enricher and Publisher are optional.
type Deps struct {
	Store     Store
	Engine    *classify.Engine
	Enricher  Enricher
	Publisher Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// sshRequestType is the request type SSH logins are fingerprinted with.
const sshRequestType = "SSH"

// ForService builds the recording pipeline for one emulated service:
//
//   - HTTP fingerprints the full request and classifies by request timing
//   - SSH fingerprints the fixed "SSH" request type and classifies by attempt
//   - FTP fingerprints the command verb and classifies by verb
func ForService(service model.Service, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		extract    Extractor
		classifier classify.Classifier
	)
	switch service {
	case model.ServiceSSH:
		extract = RequestTypeOnly(sshRequestType)
		classifier = classify.AttemptClassifier{}
	case model.ServiceFTP:
		extract = RequestTypeOnly("")
		classifier = classify.VerbClassifier{}
	default:
		extract = FullRequest
		classifier = classify.NewHistoryClassifier(deps.Engine)
	}

	p := New(WithLogger(logger.With("service", service)))
	p.AddSteps(
		NewFingerprintStep(extract, deps.Metrics),
		NewClassifyStep(classifier),
	)
	if deps.Enricher != nil {
		p.AddStep(NewEnrichStep(deps.Enricher))
	}
	p.AddStep(NewPersistStep(deps.Store, deps.Metrics, logger))
	if deps.Publisher != nil {
		p.AddStep(NewForwardStep(deps.Publisher))
	}
	return p
}
