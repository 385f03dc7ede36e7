package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/rs/zerolog"
)

// ErrNoSuggester is returned by Session.Run without a configured model
var ErrNoSuggester = errors.New("no suggester configured")

// Attachment is an image or file sent along with an instruction
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// Request is what the model collaborator receives
type Request struct {
	Instruction string
	// Tree is the Describe outline of the current page
	Tree        string
	Kinds       []string
	Attachments []Attachment
}

// Suggester is the model collaborator. Transport is up to the implementation.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (string, error)
}

// SuggesterFunc adapts a function to Suggester
type SuggesterFunc func(ctx context.Context, req Request) (string, error)

// Suggest calls f
func (f SuggesterFunc) Suggest(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Outcome is the result of one Session.Run
type Outcome struct {
	Result      Result
	Rejected    []Rejected
	Explanation string
}

// Session drives instruction → suggestion → applied batch. The store is not
// locked while the model is working.
type Session struct {
	store     *tree.Store
	applier   *Applier
	suggester Suggester
	logger    zerolog.Logger

	beforeApply func()
}

// NewSession creates a session applying suggestions through applier
func NewSession(store *tree.Store, applier *Applier, suggester Suggester, logger zerolog.Logger) *Session {
	return &Session{
		store:     store,
		applier:   applier,
		suggester: suggester,
		logger:    logger,
	}
}

// OnBeforeApply registers fn to run after a reply is parsed and right
// before its batch is applied
func (s *Session) OnBeforeApply(fn func()) {
	s.beforeApply = fn
}

// Run asks the model for a batch and applies it. If ctx is done by the time
// the reply arrives the reply is discarded and nothing is applied.
func (s *Session) Run(ctx context.Context, instruction string, attachments []Attachment) (*Outcome, error) {
	if s.suggester == nil {
		return nil, ErrNoSuggester
	}

	req := Request{
		Instruction: instruction,
		Tree:        Describe(s.store.Roots()),
		Kinds:       s.store.Catalog().Kinds(),
		Attachments: attachments,
	}

	reply, err := s.suggester.Suggest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("requesting suggestion: %w", err)
	}
	if err := ctx.Err(); err != nil {
		s.logger.Debug().Err(err).Msg("discarding suggestion after cancellation")
		return nil, err
	}

	resp, err := ParseResponse(reply)
	if err != nil {
		return nil, err
	}
	for _, r := range resp.Rejected {
		s.logger.Warn().Int("index", r.Index).Strs("errors", r.Errors).Msg("rejected malformed action")
	}

	if s.beforeApply != nil && len(resp.Actions) > 0 {
		s.beforeApply()
	}
	return &Outcome{
		Result:      s.applier.Apply(resp.Actions),
		Rejected:    resp.Rejected,
		Explanation: resp.Explanation,
	}, nil
}
