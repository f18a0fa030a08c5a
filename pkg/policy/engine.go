// Package policy decides who may change which fields of an owned record.
//
// The engine is pure: it reads a principal, the current record and a
// proposed partial update, and returns the fields that may be written plus
// any writes derived from status transitions. It never touches storage.
package policy

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// ErrPolicyViolation is matched by every ViolationError.
var ErrPolicyViolation = errors.New("policy violation")

// ErrUnknownEntity is returned for entities missing from the rule table.
var ErrUnknownEntity = errors.New("unknown entity")

// ViolationError reports that a principal may not act on a record.
// It matches both ErrPolicyViolation and apperrors.ErrForbidden.
type ViolationError struct {
	Entity      models.Entity
	RecordID    int64
	PrincipalID int64
	Reason      string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("policy violation: user %d may not %s %s %d", e.PrincipalID, e.Reason, e.Entity, e.RecordID)
}

func (e *ViolationError) Unwrap() []error {
	return []error{ErrPolicyViolation, apperrors.ErrForbidden}
}

// Proposal is a partial update: field name to new value.
type Proposal map[string]any

// Decision is the engine's verdict on a proposal.
type Decision struct {
	Allowed bool
	// Writable is the subset of the proposal that may be written.
	Writable Proposal
	// Derived holds writes implied by status transitions.
	Derived Proposal
	// Denied lists proposed fields dropped for lack of permission, sorted.
	Denied []string
}

// Writes merges Writable and Derived into the field set to persist.
// Derived values win on collision.
func (d Decision) Writes() Proposal {
	return lo.Assign(d.Writable, d.Derived)
}

// Scope restricts list queries to rows visible to a principal.
// An empty Columns slice means no restriction.
type Scope struct {
	UserID  int64
	Columns []string
}

// Unrestricted reports whether the scope allows every row.
func (s Scope) Unrestricted() bool {
	return len(s.Columns) == 0
}

// Engine evaluates the rule table.
type Engine struct {
	rules map[models.Entity]Rule
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source for derived timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRules replaces the rule table.
func WithRules(rules map[models.Entity]Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// NewEngine creates an engine over DefaultRules using the wall clock.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules: DefaultRules,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Rule returns the rule for an entity.
func (e *Engine) Rule(entity models.Entity) (Rule, error) {
	rule, ok := e.rules[entity]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return rule, nil
}

// ValidateProposal checks that a proposal names at least one field the
// entity recognises. Unrecognised fields are ignored rather than rejected.
func (e *Engine) ValidateProposal(entity models.Entity, proposal Proposal) error {
	rule, err := e.Rule(entity)
	if err != nil {
		return err
	}
	if len(lo.PickByKeys(proposal, rule.Fields)) == 0 {
		return fmt.Errorf("%w: no updatable fields provided", apperrors.ErrValidation)
	}
	return nil
}

// Authorize decides which fields of proposal the principal may write to
// record and which derived writes accompany them. A Decision with
// Allowed=false is always returned together with a *ViolationError.
func (e *Engine) Authorize(p models.Principal, record models.OwnedRecord, proposal Proposal) (Decision, error) {
	rule, err := e.Rule(record.Entity)
	if err != nil {
		return Decision{}, err
	}
	if err := e.ValidateProposal(record.Entity, proposal); err != nil {
		return Decision{}, err
	}

	recognised := lo.PickByKeys(proposal, rule.Fields)

	var writable Proposal
	if p.IsAdmin() {
		writable = recognised
	} else {
		isOwner := record.IsOwner(p.ID)
		isAssignee := record.IsAssignee(p.ID)
		if !isOwner && !isAssignee {
			return Decision{Allowed: false}, e.violation(p, record, "modify")
		}

		var allowedFields []string
		if isOwner {
			allowedFields = append(allowedFields, rule.OwnerFields...)
		}
		if isAssignee {
			allowedFields = append(allowedFields, rule.AssigneeFields...)
		}
		writable = lo.PickByKeys(recognised, lo.Uniq(allowedFields))

		if status, ok := writable["status"]; ok && rule.NonAdminStatuses != nil {
			if s, isString := status.(string); !isString || !lo.Contains(rule.NonAdminStatuses, s) {
				delete(writable, "status")
			}
		}

		if len(writable) == 0 {
			return Decision{Allowed: false, Denied: sortedKeys(recognised)},
				e.violation(p, record, "change these fields of")
		}
	}

	return Decision{
		Allowed:  true,
		Writable: writable,
		Derived:  e.derive(rule, p, record, writable),
		Denied:   sortedKeys(lo.OmitByKeys(recognised, lo.Keys(writable))),
	}, nil
}

// derive evaluates the rule's triggers against the writable status change.
func (e *Engine) derive(rule Rule, p models.Principal, record models.OwnedRecord, writable Proposal) Proposal {
	derived := Proposal{}

	raw, ok := writable["status"]
	if !ok {
		return derived
	}
	newStatus, ok := raw.(string)
	if !ok || newStatus == record.Status {
		return derived
	}

	now := e.now()
	for _, t := range rule.Triggers {
		if t.Status != newStatus {
			continue
		}
		if t.AdminOnly && !p.IsAdmin() {
			continue
		}
		if lo.Contains(t.SkipFrom, record.Status) {
			continue
		}
		for _, field := range t.Timestamps {
			derived[field] = now
		}
		if t.ActorField != "" {
			derived[t.ActorField] = p.ID
		}
	}
	return derived
}

// AuthorizeCreate checks whether the principal may create a record of entity.
func (e *Engine) AuthorizeCreate(p models.Principal, entity models.Entity) error {
	rule, err := e.Rule(entity)
	if err != nil {
		return err
	}
	if rule.CreateAdminOnly && !p.IsAdmin() {
		return &ViolationError{Entity: entity, PrincipalID: p.ID, Reason: "create"}
	}
	return nil
}

// AuthorizeDelete checks whether the principal may delete record.
// Non-admins must own the record (tasks: be the creator) and, where the
// rule restricts it, the record must be in a deletable status.
func (e *Engine) AuthorizeDelete(p models.Principal, record models.OwnedRecord) error {
	rule, err := e.Rule(record.Entity)
	if err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	if !record.IsOwner(p.ID) {
		return e.violation(p, record, "delete")
	}
	if rule.DeletableStatuses != nil && !lo.Contains(rule.DeletableStatuses, record.Status) {
		return e.violation(p, record, fmt.Sprintf("delete (status %q)", record.Status))
	}
	return nil
}

// CanView reports whether the principal may read record.
func (e *Engine) CanView(p models.Principal, record models.OwnedRecord) bool {
	return p.IsAdmin() || record.IsOwner(p.ID) || record.IsAssignee(p.ID)
}

// Visibility returns the row filter a list query must apply for the principal.
func (e *Engine) Visibility(entity models.Entity, p models.Principal) (Scope, error) {
	rule, err := e.Rule(entity)
	if err != nil {
		return Scope{}, err
	}
	if p.IsAdmin() {
		return Scope{UserID: p.ID}, nil
	}
	return Scope{UserID: p.ID, Columns: rule.VisibilityColumns}, nil
}

func (e *Engine) violation(p models.Principal, record models.OwnedRecord, reason string) error {
	return &ViolationError{
		Entity:      record.Entity,
		RecordID:    record.ID,
		PrincipalID: p.ID,
		Reason:      reason,
	}
}

func sortedKeys(m Proposal) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
