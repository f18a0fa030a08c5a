package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/audit"
	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/logging"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// UpdateResult is the reloaded record after an update plus the proposed
// fields that were dropped for lack of permission.
type UpdateResult[T any] struct {
	Record *T
	Denied []string
}

// recordStore is the repository surface shared by every owned entity.
type recordStore[T any] interface {
	GetByID(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*T, int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

// records implements Get, List, Update and Delete for one entity on top of
// the policy engine. Entity services embed it and add Create.
type records[T any] struct {
	entity    models.Entity
	store     recordStore[T]
	engine    *policy.Engine
	ownership func(*T) models.OwnedRecord
	logger    *zap.Logger
	auditor   *audit.SecurityAuditor

	// beforeWrite may rewrite the authorized field set before it is persisted.
	beforeWrite func(ctx context.Context, writes policy.Proposal) error
}

func newRecords[T any](
	entity models.Entity,
	store recordStore[T],
	engine *policy.Engine,
	ownership func(*T) models.OwnedRecord,
	logger *zap.Logger,
) *records[T] {
	return &records[T]{
		entity:    entity,
		store:     store,
		engine:    engine,
		ownership: ownership,
		logger:    logger,
		auditor:   audit.NewSecurityAuditor(logger),
	}
}

// Get loads a record the principal may view.
// Records outside the principal's visibility are reported as forbidden.
func (s *records[T]) Get(ctx context.Context, id int64) (*T, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.engine.CanView(p, s.ownership(record)) {
		return nil, fmt.Errorf("%s %d: %w", s.entity, id, apperrors.ErrForbidden)
	}
	return record, nil
}

// List returns one page of records visible to the principal.
func (s *records[T]) List(ctx context.Context, filter models.ListFilter) (*models.Page[T], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	scope, err := s.engine.Visibility(s.entity, p)
	if err != nil {
		return nil, err
	}

	filter.Normalize()
	items, total, err := s.store.List(ctx, filter, scope)
	if err != nil {
		return nil, err
	}

	return &models.Page[T]{
		Items:      items,
		Pagination: models.NewPagination(filter, total),
	}, nil
}

// Update validates the raw proposal, asks the policy engine which fields may
// be written, persists writable and derived fields, and reloads the record.
func (s *records[T]) Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[T], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	proposal, err := normalizeProposal(s.entity, raw)
	if err != nil {
		return nil, err
	}

	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	decision, err := s.engine.Authorize(p, s.ownership(record), proposal)
	if err != nil {
		s.logger.Info("Update denied by policy",
			zap.String("entity", string(s.entity)),
			zap.Int64("record_id", id),
			zap.Int64("user_id", p.ID),
			zap.Strings("denied", decision.Denied),
			zap.Any("proposal", logging.SanitizeFields(proposal)),
			zap.Error(err))
		s.auditor.LogPolicyViolation(ctx, "update", err, decision.Denied)
		return nil, err
	}

	writes := decision.Writes()
	if s.beforeWrite != nil {
		if err := s.beforeWrite(ctx, writes); err != nil {
			return nil, err
		}
	}

	if err := s.store.ApplyUpdate(ctx, id, writes); err != nil {
		return nil, err
	}

	if len(decision.Denied) > 0 {
		s.logger.Debug("Update applied with denied fields",
			zap.String("entity", string(s.entity)),
			zap.Int64("record_id", id),
			zap.Strings("denied", decision.Denied))
	}

	updated, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &UpdateResult[T]{Record: updated, Denied: decision.Denied}, nil
}

// Delete removes a record if the policy allows it.
func (s *records[T]) Delete(ctx context.Context, id int64) error {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return err
	}

	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.engine.AuthorizeDelete(p, s.ownership(record)); err != nil {
		s.logger.Info("Delete denied by policy",
			zap.String("entity", string(s.entity)),
			zap.Int64("record_id", id),
			zap.Int64("user_id", p.ID),
			zap.Error(err))
		s.auditor.LogPolicyViolation(ctx, "delete", err, nil)
		return err
	}

	return s.store.Delete(ctx, id)
}

// authorizeCreate resolves the principal and checks it may create the entity.
func (s *records[T]) authorizeCreate(ctx context.Context) (models.Principal, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return models.Principal{}, err
	}
	if err := s.engine.AuthorizeCreate(p, s.entity); err != nil {
		s.auditor.LogPolicyViolation(ctx, "create", err, nil)
		return models.Principal{}, err
	}
	return p, nil
}
