package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"maps"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// FileVersionService manages file change history.
type FileVersionService interface {
	Create(ctx context.Context, raw map[string]any) (*models.FileVersion, error)
	Get(ctx context.Context, id int64) (*models.FileVersion, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.FileVersion], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.FileVersion], error)
	Delete(ctx context.Context, id int64) error
}

type fileVersionService struct {
	*records[models.FileVersion]
	repo repositories.FileVersionRepository
}

// NewFileVersionService creates a FileVersionService.
func NewFileVersionService(repo repositories.FileVersionRepository, engine *policy.Engine, logger *zap.Logger) FileVersionService {
	return &fileVersionService{
		records: newRecords[models.FileVersion](models.EntityFileVersion, repo, engine, (*models.FileVersion).Ownership, logger.Named("file_versions")),
		repo:    repo,
	}
}

// ContentHash returns the hex SHA-256 digest stored for file content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Create records the next version of a file. When content is submitted its
// hash replaces any content_hash sent alongside it.
func (s *fileVersionService) Create(ctx context.Context, raw map[string]any) (*models.FileVersion, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := normalizeProposal(models.EntityFileVersion, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "file_path"); err != nil {
		return nil, err
	}

	fv := &models.FileVersion{
		UserID:            p.ID,
		FilePath:          stringField(fields, "file_path"),
		ChangeDescription: stringField(fields, "change_description"),
		ContentHash:       optionalString(fields, "content_hash"),
	}
	if content, ok := fields["content"].(string); ok {
		hash := ContentHash(content)
		fv.ContentHash = &hash
	}

	if err := s.repo.Create(ctx, fv); err != nil {
		return nil, err
	}

	s.logger.Info("File version recorded",
		zap.Int64("file_version_id", fv.ID),
		zap.String("file_path", fv.FilePath),
		zap.Int("version_number", fv.VersionNumber))
	return fv, nil
}

// Update accepts content in place of content_hash, like Create.
func (s *fileVersionService) Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.FileVersion], error) {
	if content, ok := raw["content"].(string); ok {
		raw = maps.Clone(raw)
		delete(raw, "content")
		raw["content_hash"] = ContentHash(content)
	}
	return s.records.Update(ctx, id, raw)
}

var _ FileVersionService = (*fileVersionService)(nil)
