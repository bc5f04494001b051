// Package compliance keeps the audit trail for compliance-sensitive chat replies.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/lakeside-dental/internal/chat"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	// EventEmergencyPolicy is logged when the emergency-policy answer is given.
	EventEmergencyPolicy AuditEventType = "compliance.emergency_policy"
	// EventEmergencyEscalation is logged when a patient describing symptoms is told to call.
	EventEmergencyEscalation AuditEventType = "compliance.emergency_escalation"
	// EventMedicalAdviceRefused is logged when a diagnosis or prescription request is refused.
	EventMedicalAdviceRefused AuditEventType = "compliance.medical_advice_refused"
	// EventPromptInjection is logged when a message is kept away from the gateway.
	EventPromptInjection AuditEventType = "security.prompt_injection"
)

const maxStoredMessage = 500

var ruleEvents = map[string]AuditEventType{
	chat.RuleEmergencyPolicy:  EventEmergencyPolicy,
	chat.RuleEmergencySymptom: EventEmergencyEscalation,
	chat.RuleMedicalAdvice:    EventMedicalAdviceRefused,
}

// AuditEvent represents an immutable compliance audit record.
type AuditEvent struct {
	ID          string          `json:"id"`
	EventType   AuditEventType  `json:"event_type"`
	Rule        string          `json:"rule,omitempty"`
	Pathname    string          `json:"pathname,omitempty"`
	UserMessage string          `json:"user_message,omitempty"`
	Keywords    []string        `json:"keywords,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	RefusalReason    string   `json:"refusal_reason,omitempty"`
	InjectionSignals []string `json:"injection_signals,omitempty"`
}

// AuditService handles compliance audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records a compliance audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO chat_audit_events (
			id, event_type, rule, pathname, user_message, keywords, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.Rule),
		nullString(event.Pathname),
		nullString(clip(event.UserMessage)),
		pq.Array(event.Keywords),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// LogChatRule records a reply from one of the compliance-sensitive chat
// rules. Other rules are ignored.
func (s *AuditService) LogChatRule(ctx context.Context, rule, pathname, message string, keywords []string) error {
	eventType, ok := ruleEvents[rule]
	if !ok {
		return nil
	}
	event := AuditEvent{
		EventType:   eventType,
		Rule:        rule,
		Pathname:    pathname,
		UserMessage: message,
		Keywords:    keywords,
	}
	if eventType == EventMedicalAdviceRefused {
		event.Details, _ = json.Marshal(AuditDetails{RefusalReason: "Detected diagnosis or prescription request"})
	}
	return s.LogEvent(ctx, event)
}

// LogPromptInjection records a message that was blocked before the gateway.
// The payload itself is not stored.
func (s *AuditService) LogPromptInjection(ctx context.Context, pathname string, signals []string) error {
	details, _ := json.Marshal(AuditDetails{InjectionSignals: signals})
	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventPromptInjection,
		Pathname:    pathname,
		UserMessage: "[BLOCKED]",
		Details:     details,
	})
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	EventType AuditEventType
	Since     time.Time
	Limit     int
	Offset    int
}

// QueryEvents retrieves audit events, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, rule, pathname, user_message, keywords, details, created_at
		FROM chat_audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var rule, pathname, userMsg sql.NullString
		var details []byte
		err := rows.Scan(
			&e.ID, &e.EventType, &rule, &pathname, &userMsg,
			pq.Array(&e.Keywords), &details, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.Rule = rule.String
		e.Pathname = pathname.String
		e.UserMessage = userMsg.String
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}
	return events, nil
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxStoredMessage {
		return s
	}
	return string([]rune(s)[:maxStoredMessage])
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
