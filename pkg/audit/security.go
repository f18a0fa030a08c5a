// Package audit provides security audit logging for SIEM consumption.
// It logs authentication and authorization events in structured JSON so they
// can be filtered apart from ordinary request logs.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/middleware"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventLoginFailure is logged for every rejected login attempt.
	EventLoginFailure SecurityEventType = "login_failure"
	// EventLoginSuccess is logged when a token is issued.
	EventLoginSuccess SecurityEventType = "login_success"
	// EventPolicyViolation is logged when the policy engine refuses an action.
	EventPolicyViolation SecurityEventType = "policy_violation"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    int64             `json:"user_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// LoginFailureDetails describes a rejected login.
type LoginFailureDetails struct {
	Username string `json:"username"`
	// Reason is internal only; clients always see invalid_credentials.
	Reason string `json:"reason"`
}

// PolicyViolationDetails describes a refused record action.
type PolicyViolationDetails struct {
	Entity   string   `json:"entity"`
	RecordID int64    `json:"record_id,omitempty"`
	Action   string   `json:"action"`
	Denied   []string `json:"denied_fields,omitempty"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The "security_audit" name makes the events easy to filter downstream.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// LogLoginFailure records a rejected login at WARN level.
// Repeated failures for one username are the signal to alert on.
func (a *SecurityAuditor) LogLoginFailure(ctx context.Context, userID int64, username, reason string) {
	event := a.newEvent(ctx, EventLoginFailure, "warning")
	event.UserID = userID
	event.Details = LoginFailureDetails{Username: username, Reason: reason}

	a.logger.Warn("Login failed",
		zap.String("event_json", a.encode(event)),
		zap.String("username", username),
		zap.String("reason", reason),
		zap.Int64("user_id", userID),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}

// LogLoginSuccess records an issued session token at INFO level.
func (a *SecurityAuditor) LogLoginSuccess(ctx context.Context, userID int64, username string) {
	event := a.newEvent(ctx, EventLoginSuccess, "info")
	event.UserID = userID
	event.Details = map[string]string{"username": username}

	a.logger.Info("Login succeeded",
		zap.String("event_json", a.encode(event)),
		zap.String("username", username),
		zap.Int64("user_id", userID),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}

// LogPolicyViolation records a refused create, update, delete or read.
// Errors that are not *policy.ViolationError are ignored.
func (a *SecurityAuditor) LogPolicyViolation(ctx context.Context, action string, err error, denied []string) {
	var violation *policy.ViolationError
	if !errors.As(err, &violation) {
		return
	}

	event := a.newEvent(ctx, EventPolicyViolation, "warning")
	event.UserID = violation.PrincipalID
	event.Details = PolicyViolationDetails{
		Entity:   string(violation.Entity),
		RecordID: violation.RecordID,
		Action:   action,
		Denied:   denied,
	}

	a.logger.Warn("Policy violation",
		zap.String("event_json", a.encode(event)),
		zap.String("entity", string(violation.Entity)),
		zap.Int64("record_id", violation.RecordID),
		zap.String("action", action),
		zap.Int64("user_id", violation.PrincipalID),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, severity string) SecurityEvent {
	return SecurityEvent{
		EventID:   uuid.New(),
		Timestamp: a.now(),
		EventType: eventType,
		UserID:    auth.GetUserIDFromContext(ctx),
		RequestID: middleware.GetRequestID(ctx),
		Severity:  severity,
	}
}

// encode serializes the event. Known types never fail to marshal.
func (a *SecurityAuditor) encode(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}
