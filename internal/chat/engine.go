package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

var engineTracer = otel.Tracer("lakeside.internal.chat.engine")

// Gateway outcomes reported to the GatewayObserver.
const (
	GatewayOutcomeOK       = "ok"
	GatewayOutcomeError    = "error"
	GatewayOutcomeRejected = "rejected"
	GatewayOutcomeLeak     = "leak"
	GatewayOutcomeBlocked  = "blocked"
	GatewayOutcomeCacheHit = "cache_hit"
)

const defaultPathname = "/"

// Completer is the chat-completion backend. *Gateway implements it.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, req GatewayRequest) (RawReply, error)
}

// Auditor records compliance-sensitive replies. Implementations must be safe
// for concurrent use.
type Auditor interface {
	LogChatRule(ctx context.Context, rule, pathname, message string, keywords []string) error
	LogPromptInjection(ctx context.Context, pathname string, signals []string) error
}

// GatewayObserver receives gateway call outcomes.
type GatewayObserver interface {
	ObserveGateway(outcome string, elapsed time.Duration)
}

// Options configures optional collaborators of the Engine. All fields may be nil.
type Options struct {
	Gateway  Completer
	Cache    *ReplyCache
	Auditor  Auditor
	Observer GatewayObserver
	Logger   *logging.Logger
}

// Engine resolves chat requests against a knowledge base. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	kb       *knowledge.Base
	rules    []rule
	table    []tableEntry
	faqs     []faqEntry
	gateway  Completer
	cache    *ReplyCache
	auditor  Auditor
	observer GatewayObserver
	logger   *logging.Logger
}

// NewEngine prepares the rule tables for kb.
func NewEngine(kb *knowledge.Base, opts Options) *Engine {
	if kb == nil {
		panic("chat: knowledge base cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		kb:       kb,
		rules:    intentRules(),
		table:    intentTable(),
		faqs:     buildFAQIndex(kb.FAQs),
		gateway:  opts.Gateway,
		cache:    opts.Cache,
		auditor:  opts.Auditor,
		observer: opts.Observer,
		logger:   logger,
	}
}

// GatewayConfigured reports whether Respond may consult the gateway.
func (e *Engine) GatewayConfigured() bool {
	return e.gateway != nil && e.gateway.Configured()
}

// Respond answers req. It never fails: gateway problems degrade to the
// deterministic reply.
func (e *Engine) Respond(ctx context.Context, req Request) Result {
	ctx, span := engineTracer.Start(ctx, "chat.respond")
	defer span.End()

	pathname := strings.TrimSpace(req.Pathname)
	if pathname == "" {
		pathname = defaultPathname
	}
	q := NewQuery(req.Message)
	if len(q.Tokens) == 0 {
		return Result{Reply: clarifyReply(e.kb), Stage: StageClarify, SuppressGateway: true}
	}

	result, matched := e.resolve(q, pathname)
	span.SetAttributes(
		attribute.String("lakeside.chat.stage", string(result.Stage)),
		attribute.String("lakeside.chat.rule", result.Rule),
	)
	if matched != nil && matched.audited {
		e.audit(ctx, *matched, pathname, req.Message, q)
	}
	if result.SuppressGateway || !e.GatewayConfigured() {
		return result
	}
	if enhanced, ok := e.consultGateway(ctx, req, q, pathname, result.Reply); ok {
		span.SetAttributes(attribute.String("lakeside.chat.stage", string(enhanced.Stage)))
		return enhanced
	}
	return result
}

// resolve runs the deterministic stages in precedence order.
func (e *Engine) resolve(q Query, pathname string) (Result, *rule) {
	for i := range e.rules {
		r := &e.rules[i]
		if r.match(q) {
			return Result{
				Reply:           r.build(e.kb),
				Stage:           StageRule,
				Rule:            r.name,
				SuppressGateway: r.suppressGateway,
			}, r
		}
	}
	if entry, ok := matchIntentTable(e.table, q.Raw()); ok {
		return Result{Reply: entry.build(e.kb), Stage: StageIntentTable, Rule: entry.name, SuppressGateway: true}, nil
	}
	if f, ok := matchFAQ(e.faqs, q); ok {
		return Result{Reply: faqReply(f), Stage: StageFAQ, Rule: f.Question, SuppressGateway: true}, nil
	}
	if matches := retrievePages(e.kb, q.Tokens, retrievalLimit); len(matches) > 0 {
		return Result{Reply: retrievalReply(e.kb, matches, pathname), Stage: StageRetrieval, Rule: matches[0].Entry.Path}, nil
	}
	return Result{Reply: catchAllReply(e.kb, q), Stage: StageFallback}, nil
}

func (e *Engine) consultGateway(ctx context.Context, req Request, q Query, pathname string, fallback Reply) (Result, bool) {
	if scan := ScanForPromptInjection(req.Message); scan.Blocked {
		e.logger.Warn("chat message blocked before gateway", "signals", scan.Signals, "score", scan.Score, "pathname", pathname)
		e.observe(GatewayOutcomeBlocked, 0)
		if e.auditor != nil {
			if err := e.auditor.LogPromptInjection(ctx, pathname, scan.Signals); err != nil {
				e.logger.Warn("failed to record prompt injection audit event", "error", err)
			}
		}
		return Result{}, false
	}

	history := trimHistory(req.History)
	cacheable := e.cache != nil && len(history) == 0
	if cacheable {
		reply, err := e.cache.Get(ctx, pathname, q.Text)
		switch {
		case err == nil:
			e.observe(GatewayOutcomeCacheHit, 0)
			return Result{Reply: reply, Stage: StageGatewayCache}, true
		case !errors.Is(err, ErrCacheMiss):
			e.logger.Warn("chat reply cache read failed", "error", err)
		}
	}

	system := buildSystemContext(e.kb, pathname, retrievePages(e.kb, q.Tokens, gatewayMatchLimit), fallback)
	started := time.Now()
	raw, err := e.gateway.Complete(ctx, GatewayRequest{
		System:  system,
		History: history,
		Message: strings.TrimSpace(req.Message),
	})
	elapsed := time.Since(started)
	if err != nil {
		e.logger.Warn("chat gateway call failed", "error", err, "elapsed_ms", elapsed.Milliseconds())
		e.observe(GatewayOutcomeError, elapsed)
		return Result{}, false
	}

	reply, ok := Sanitize(raw)
	if !ok {
		e.logger.Warn("chat gateway reply discarded by sanitizer")
		e.observe(GatewayOutcomeRejected, elapsed)
		return Result{}, false
	}
	if leak := ScanOutputForLeaks(reply.Message); leak.Leaked {
		e.logger.Warn("chat gateway reply discarded by leak scan", "signals", leak.Signals)
		e.observe(GatewayOutcomeLeak, elapsed)
		return Result{}, false
	}
	e.observe(GatewayOutcomeOK, elapsed)

	if cacheable {
		if err := e.cache.Set(ctx, pathname, q.Text, reply); err != nil {
			e.logger.Warn("chat reply cache write failed", "error", err)
		}
	}
	return Result{Reply: reply, Stage: StageGateway}, true
}

func (e *Engine) audit(ctx context.Context, r rule, pathname, message string, q Query) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.LogChatRule(ctx, r.name, pathname, message, q.matchTerms(r.keywords)); err != nil {
		e.logger.Warn("failed to record chat audit event", "error", err, "rule", r.name)
	}
}

func (e *Engine) observe(outcome string, elapsed time.Duration) {
	if e.observer != nil {
		e.observer.ObserveGateway(outcome, elapsed)
	}
}

// trimHistory keeps the last MaxHistoryTurns user/assistant turns, trimmed
// and bounded to MaxMessageLength.
func trimHistory(history []Turn) []Turn {
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	out := make([]Turn, 0, len(history))
	for _, turn := range history {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) > MaxMessageLength {
			content = string([]rune(content)[:MaxMessageLength])
		}
		out = append(out, Turn{Role: turn.Role, Content: content})
	}
	return out
}
