package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Anshuhim02/student-result-api/internal/dto"
	"github.com/Anshuhim02/student-result-api/internal/models"
	appErrors "github.com/Anshuhim02/student-result-api/pkg/errors"
	"github.com/Anshuhim02/student-result-api/pkg/storage"
)

type resultRepository interface {
	Create(ctx context.Context, result *models.Result, subjects []models.Subject) error
	List(ctx context.Context, userID string, filter models.ResultFilter) ([]models.Result, error)
	ListByCreated(ctx context.Context, userID string) ([]models.Result, error)
	Get(ctx context.Context, userID, id string) (*models.Result, error)
	GetSubjects(ctx context.Context, resultID string) ([]models.Subject, error)
	Update(ctx context.Context, userID string, result *models.Result, subjects []models.Subject) error
	Delete(ctx context.Context, userID, id string) error
}

type uploadStorage interface {
	Allowed(filename string) bool
	Save(originalFilename string, size int64, r io.Reader) (string, error)
	Delete(reference string) error
}

type imageCleanup interface {
	Enqueue(reference string) error
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Upload carries an incoming image file from the transport layer.
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// ResultServiceConfig tunes dashboard caching.
type ResultServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ResultService orchestrates result CRUD, image lifecycle and the dashboard.
type ResultService struct {
	repo    resultRepository
	storage uploadStorage
	cache   statsCache
	cleanup imageCleanup
	logger  *zap.Logger
	cfg     ResultServiceConfig
}

// NewResultService constructs a ResultService. cache and cleanup may be nil;
// without a cleanup worker, stale images are removed synchronously.
func NewResultService(repo resultRepository, store uploadStorage, cache statsCache, cleanup imageCleanup, cfg ResultServiceConfig, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ResultService{repo: repo, storage: store, cache: cache, cleanup: cleanup, logger: logger, cfg: cfg}
}

// Create validates and persists a new result with its subject rows.
func (s *ResultService) Create(ctx context.Context, userID string, form dto.ResultForm, image *Upload) (*dto.ResultDetail, error) {
	if strings.TrimSpace(form.StudentName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}

	inputs, err := decodeSubjects(form.Subjects)
	if err != nil {
		return nil, err
	}
	agg, err := AggregateSubjects(inputs)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.storeImage(image)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		UserID:        userID,
		StudentName:   strings.TrimSpace(form.StudentName),
		Board:         form.Board,
		Exam:          form.Exam,
		School:        form.School,
		ClassName:     form.ClassName,
		Year:          form.Year,
		TotalObtained: agg.TotalObtained,
		TotalMarks:    agg.TotalMarks,
		Percentage:    agg.Percentage,
		Grade:         agg.Grade,
		ImagePath:     imagePath,
	}

	if err := s.repo.Create(ctx, result, agg.Subjects); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create result")
	}

	s.invalidateDashboard(ctx, userID)
	s.logger.Info("result created", zap.String("result_id", result.ID), zap.String("user_id", userID))
	return &dto.ResultDetail{Result: *result, Subjects: agg.Subjects}, nil
}

// List returns the dashboard payload: filtered results plus aggregate stats.
func (s *ResultService) List(ctx context.Context, userID string, filter models.ResultFilter) (*dto.DashboardResponse, error) {
	if filter.Sort != models.SortAscending {
		filter.Sort = models.SortDescending
	}

	cacheKey := s.dashboardKey(userID, filter)
	if s.cfg.CacheEnabled && s.cache != nil {
		var cached dto.DashboardResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	results, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}

	payload := &dto.DashboardResponse{
		Results: results,
		Stats:   computeStats(results),
		Search:  filter.Search,
		Sort:    filter.Sort,
	}

	if s.cfg.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}

	return payload, nil
}

// Get returns one owned result with its ordered subject rows.
func (s *ResultService) Get(ctx context.Context, userID, id string) (*dto.ResultDetail, error) {
	result, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}

	subjects, err := s.repo.GetSubjects(ctx, result.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	return &dto.ResultDetail{Result: *result, Subjects: subjects}, nil
}

// Update overwrites an owned result and replaces its subject rows wholesale.
// A newly supplied image replaces and removes the previous one.
func (s *ResultService) Update(ctx context.Context, userID, id string, form dto.ResultForm, image *Upload) (*dto.ResultDetail, error) {
	if strings.TrimSpace(form.StudentName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}

	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}

	inputs, err := decodeSubjects(form.Subjects)
	if err != nil {
		return nil, err
	}
	agg, err := AggregateSubjects(inputs)
	if err != nil {
		return nil, err
	}

	imagePath := existing.ImagePath
	newPath, err := s.storeImage(image)
	if err != nil {
		return nil, err
	}
	if newPath != nil {
		if imagePath != nil {
			s.removeImage(*imagePath)
		}
		imagePath = newPath
	}

	result := &models.Result{
		ID:            existing.ID,
		UserID:        userID,
		StudentName:   strings.TrimSpace(form.StudentName),
		Board:         form.Board,
		Exam:          form.Exam,
		School:        form.School,
		ClassName:     form.ClassName,
		Year:          form.Year,
		TotalObtained: agg.TotalObtained,
		TotalMarks:    agg.TotalMarks,
		Percentage:    agg.Percentage,
		Grade:         agg.Grade,
		ImagePath:     imagePath,
		CreatedAt:     existing.CreatedAt,
	}

	if err := s.repo.Update(ctx, userID, result, agg.Subjects); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update result")
	}

	s.invalidateDashboard(ctx, userID)
	s.logger.Info("result updated", zap.String("result_id", id), zap.String("user_id", userID))
	return &dto.ResultDetail{Result: *result, Subjects: agg.Subjects}, nil
}

// Delete removes an owned result, its subject rows, and any stored image.
func (s *ResultService) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete result")
	}

	if existing.ImagePath != nil {
		s.removeImage(*existing.ImagePath)
	}

	s.invalidateDashboard(ctx, userID)
	s.logger.Info("result deleted", zap.String("result_id", id), zap.String("user_id", userID))
	return nil
}

// storeImage persists an accepted upload and returns its reference. A
// missing file or a disallowed extension yields no reference and no error,
// matching the silent-skip upload contract. Oversized files are rejected.
func (s *ResultService) storeImage(image *Upload) (*string, error) {
	if image == nil || image.Filename == "" {
		return nil, nil
	}
	if !s.storage.Allowed(image.Filename) {
		s.logger.Debug("upload skipped: extension not allowed", zap.String("filename", image.Filename))
		return nil, nil
	}

	ref, err := s.storage.Save(image.Filename, image.Size, image.Reader)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "image exceeds the maximum allowed size")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
	}
	return &ref, nil
}

// removeImage hands a stale file to the cleanup worker, falling back to a
// synchronous delete when no worker is configured.
func (s *ResultService) removeImage(reference string) {
	if s.cleanup != nil {
		err := s.cleanup.Enqueue(reference)
		if err == nil {
			return
		}
		s.logger.Warn("failed to enqueue image removal", zap.Error(err))
	}
	if err := s.storage.Delete(reference); err != nil {
		s.logger.Warn("failed to delete stale image", zap.Error(err))
	}
}

func (s *ResultService) dashboardKey(userID string, filter models.ResultFilter) string {
	return fmt.Sprintf("results:dashboard:%s:%s:%s", userID, filter.Search, filter.Sort)
}

func (s *ResultService) invalidateDashboard(ctx context.Context, userID string) {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("results:dashboard:%s:*", userID)); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func decodeSubjects(raw string) ([]dto.SubjectInput, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var inputs []dto.SubjectInput
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "subjects must be a JSON array")
	}
	return inputs, nil
}

func computeStats(results []models.Result) models.ResultStats {
	stats := models.ResultStats{TotalResults: len(results)}
	if len(results) == 0 {
		return stats
	}

	var sum, highest float64
	for _, r := range results {
		sum += r.Percentage
		if r.Percentage > highest {
			highest = r.Percentage
		}
	}
	stats.AveragePercentage = round2(sum / float64(len(results)))
	stats.HighestPercentage = round2(highest)
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
