package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guysoft/wikiread/internal/callback"
	"github.com/guysoft/wikiread/internal/resolve"
	"github.com/guysoft/wikiread/internal/wiki"
)

// User-facing reply texts.
const (
	ReplyNotFound      = "No article found"
	ReplyNotInList     = "Article not in list"
	ReplyCancelled     = "Perhaps another time"
	ReplySelectPrompt  = "Please select one of the results, or /cancel to cancel:"
	ReplyLookupFailure = "I couldn't reach Wikipedia just now, please try again."
)

// cancelWords end a pending selection.
var cancelWords = []string{"Close", "/cancel"}

// Classifier turns one query into a tagged search outcome.
type Classifier interface {
	Classify(ctx context.Context, query string) (resolve.Outcome, error)
}

// Suggester offers a corrected spelling for a query, or "" when none
// exists.
type Suggester interface {
	Suggest(ctx context.Context, query string) (string, error)
}

// PageFetcher fetches a full article by exact title.
type PageFetcher interface {
	Page(ctx context.Context, title string) (*wiki.Page, error)
}

// Option is one selectable reply option: a visible label and the opaque
// token the transport echoes back.
type Option struct {
	Label string
	Token string
}

// Reply is the engine's instruction to the transport layer for one
// handled message.
type Reply struct {
	Text string
	// Options, when non-empty, is a one-shot selectable list to attach.
	Options []Option
	// ClearOptions removes a previously attached selectable list.
	ClearOptions bool
}

// Engine is the dialogue state machine. It is the only writer of session
// state; the dispatch layer never delivers two messages for one
// conversation concurrently.
type Engine struct {
	store      *Store
	classifier Classifier
	suggester  Suggester
	pages      PageFetcher
	logger     *slog.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a conversation engine.
func NewEngine(store *Store, classifier Classifier, suggester Suggester, pages PageFetcher, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if suggester == nil {
		return nil, fmt.Errorf("suggester is required")
	}
	if pages == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}

	e := &Engine{
		store:      store,
		classifier: classifier,
		suggester:  suggester,
		pages:      pages,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// HandleMessage runs one inbound message through the state machine and
// returns the reply to send. Every accepted message yields a reply; a
// failed lookup becomes a user-visible text, never a dropped message.
func (e *Engine) HandleMessage(ctx context.Context, conversationID, text string) Reply {
	sess := e.store.Get(conversationID)
	text = strings.TrimSpace(text)

	var reply Reply
	switch sess.Stage {
	case StageAwaitingSelection:
		reply = e.handleSelection(ctx, sess, text)
	case StageIdle:
		reply = e.handleQuery(ctx, sess, text)
	default:
		e.logger.Error("session in unknown stage, resetting",
			"conversation_id", conversationID,
			"stage", sess.Stage)
		sess.Reset()
		reply = e.handleQuery(ctx, sess, text)
	}

	e.store.Put(conversationID, sess)
	return reply
}

// handleQuery treats the message as a free-text search.
func (e *Engine) handleQuery(ctx context.Context, sess *Session, query string) Reply {
	outcome, err := e.resolveQuery(ctx, query)
	if err != nil {
		e.logger.Warn("lookup failed, conversation state unchanged",
			"conversation_id", sess.ConversationID,
			"error", err)
		return Reply{Text: ReplyLookupFailure}
	}

	e.logger.Debug("query classified",
		"conversation_id", sess.ConversationID,
		"kind", outcome.Kind.String(),
		"candidates", len(outcome.Options))

	switch {
	case outcome.Kind == resolve.KindNotFound:
		sess.Reset()
		return Reply{Text: ReplyNotFound}

	case outcome.Kind == resolve.KindExact:
		return e.deliverArticle(ctx, sess, outcome.Title, "")

	case outcome.Kind == resolve.KindSuggestion && len(outcome.Options) == 0:
		// Corrected query resolved straight to one article: deliver it
		// with the disclosure, no selection step.
		return e.deliverArticle(ctx, sess, outcome.Title, outcome.Title)

	default:
		suggestion := ""
		if outcome.Kind == resolve.KindSuggestion {
			suggestion = outcome.Title
		}
		return e.presentCandidates(sess, outcome.Options, suggestion)
	}
}

// resolveQuery classifies a query, falling back once to a spelling
// suggestion when the first pass matches nothing. The fallback is a
// single level: a suggestion that is itself empty ends at NotFound.
func (e *Engine) resolveQuery(ctx context.Context, query string) (resolve.Outcome, error) {
	outcome, err := e.classifier.Classify(ctx, query)
	if err != nil {
		return resolve.Outcome{}, err
	}
	if !outcome.IsEmpty() {
		return outcome, nil
	}

	suggestion, err := e.suggester.Suggest(ctx, query)
	if err != nil {
		return resolve.Outcome{}, fmt.Errorf("suggestion lookup failed: %w", err)
	}
	if suggestion == "" {
		return outcome, nil
	}

	second, err := e.classifier.Classify(ctx, suggestion)
	if err != nil {
		return resolve.Outcome{}, err
	}
	if second.IsEmpty() {
		return second, nil
	}

	return resolve.Outcome{
		Kind:    resolve.KindSuggestion,
		Title:   suggestion,
		Options: second.Options,
	}, nil
}

// handleSelection validates the reply to a pending candidate list.
func (e *Engine) handleSelection(ctx context.Context, sess *Session, text string) Reply {
	for _, word := range cancelWords {
		if text == word {
			sess.Reset()
			return Reply{Text: ReplyCancelled, ClearOptions: true}
		}
	}

	if !sess.HasCandidate(text) {
		// Candidates are retained so the user can try again.
		return Reply{Text: ReplyNotInList}
	}

	reply := e.deliverArticle(ctx, sess, text, "")
	if sess.Stage == StageIdle {
		reply.ClearOptions = true
	}
	return reply
}

// deliverArticle fetches a page by exact title and replies with its
// summary, prefixed with a did-you-mean disclosure when the title came
// from a spelling suggestion. The session returns to idle on delivery; a
// transient lookup failure leaves it untouched so a resend behaves like
// a fresh attempt.
func (e *Engine) deliverArticle(ctx context.Context, sess *Session, title, suggestion string) Reply {
	page, err := e.pages.Page(ctx, title)
	if err != nil {
		if errors.Is(err, wiki.ErrPageNotFound) || errors.Is(err, wiki.ErrInvalidQuery) {
			sess.Reset()
			return Reply{Text: ReplyNotFound}
		}
		e.logger.Warn("page fetch failed, conversation state unchanged",
			"conversation_id", sess.ConversationID,
			"title", title,
			"error", err)
		return Reply{Text: ReplyLookupFailure}
	}

	sess.Reset()

	text := page.Summary
	if suggestion != "" {
		text = didYouMean(suggestion) + text
	}
	return Reply{Text: text}
}

// presentCandidates encodes each candidate into a selectable option and
// moves the session into the selection stage. A candidate whose token
// would exceed the transport ceiling is dropped from both the options
// and the stored set, so the stored candidates always mirror what the
// user can see.
func (e *Engine) presentCandidates(sess *Session, titles []string, suggestion string) Reply {
	options := make([]Option, 0, len(titles))
	kept := make([]string, 0, len(titles))

	for _, title := range titles {
		token, err := callback.Encode(callback.Selection{Title: title})
		if err != nil {
			e.logger.Warn("dropping candidate with oversized token",
				"conversation_id", sess.ConversationID,
				"title", title,
				"error", err)
			continue
		}
		options = append(options, Option{Label: title, Token: token})
		kept = append(kept, title)
	}

	if len(options) == 0 {
		sess.Reset()
		return Reply{Text: ReplyNotFound}
	}

	if err := sess.AwaitSelection(kept); err != nil {
		// Unreachable while kept is non-empty; guard the invariant anyway.
		e.logger.Error("failed to store candidates", "error", err)
		sess.Reset()
		return Reply{Text: ReplyNotFound}
	}

	text := ""
	if suggestion != "" {
		text = didYouMean(suggestion)
	}
	text += ReplySelectPrompt

	return Reply{Text: text, Options: options}
}

func didYouMean(suggestion string) string {
	return `Did you mean "` + suggestion + `"?` + "\n"
}
