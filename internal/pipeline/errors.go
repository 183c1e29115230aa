package pipeline

import (
	"errors"

	"github.com/josephgoksu/PageWing/internal/assemble"
	"github.com/josephgoksu/PageWing/internal/extract"
	"github.com/josephgoksu/PageWing/internal/llm"
	"github.com/josephgoksu/PageWing/internal/publish"
)

// ErrLedgerMiss means a round > 1 named a task the ledger has never seen.
var ErrLedgerMiss = errors.New("no existing repository found for task")

// Kind groups round failures by who has to act on them.
type Kind string

const (
	KindNone        Kind = ""
	KindClient      Kind = "client"
	KindGeneration  Kind = "generation"
	KindPublication Kind = "publication"
	KindInternal    Kind = "internal"
)

// Classify maps an error returned by Runner.Run onto its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrLedgerMiss):
		return KindClient
	case errors.Is(err, llm.ErrTruncatedGeneration),
		errors.Is(err, llm.ErrGenerationUnavailable),
		errors.Is(err, extract.ErrUnparsableGeneration),
		errors.Is(err, assemble.ErrMissingEntryPoint):
		return KindGeneration
	case errors.Is(err, publish.ErrPublicationFailed):
		return KindPublication
	default:
		return KindInternal
	}
}
