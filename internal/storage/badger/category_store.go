package badger

import (
	"context"
	"time"

	"github.com/ternarybob/newscrawler/internal/apperrors"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CreateCategory inserts a new category, rejecting a duplicate name.
func (s *Store) CreateCategory(ctx context.Context, cat *models.Category) (*models.Category, error) {
	if err := models.ValidateStruct(cat); err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if cat.ID == "" {
		cat.ID = common.NewID("cat")
	}
	cat.CreatedAt = now
	cat.UpdatedAt = now

	var existing []models.Category
	if err := s.hold().Find(&existing, badgerhold.Where("Name").Eq(cat.Name)); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "lookup category by name")
	}
	if len(existing) > 0 {
		return nil, apperrors.New(apperrors.KindDuplicate, "category name already exists: "+cat.Name)
	}

	if err := s.hold().Insert(cat.ID, cat); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "insert category")
	}
	return cat, nil
}

// GetCategory fetches a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var cat models.Category
	if err := s.hold().Get(id, &cat); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, apperrors.New(apperrors.KindNotFound, "category not found: "+id)
		}
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "get category")
	}
	return &cat, nil
}

// UpdateCategory applies a full update to an existing category row.
func (s *Store) UpdateCategory(ctx context.Context, cat *models.Category) (*models.Category, error) {
	if err := models.ValidateStruct(cat); err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.GetCategory(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	cat.CreatedAt = existing.CreatedAt
	cat.UpdatedAt = time.Now().UTC()

	if err := s.hold().Update(cat.ID, cat); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "update category")
	}
	return cat, nil
}

// DeleteCategory removes a category and cascades to its jobs and links.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	var jobs []models.Job
	if err := s.hold().Find(&jobs, badgerhold.Where("CategoryID").Eq(id)); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, err, "find jobs for category cascade")
	}
	for _, j := range jobs {
		if err := s.hold().Delete(j.ID, &models.Job{}); err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, err, "delete cascaded job")
		}
	}

	var links []models.ArticleCategoryLink
	if err := s.hold().Find(&links, badgerhold.Where("CategoryID").Eq(id)); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, err, "find links for category cascade")
	}
	for _, l := range links {
		if err := s.hold().Delete(l.ID, &models.ArticleCategoryLink{}); err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, err, "delete cascaded link")
		}
	}

	if err := s.hold().Delete(id, &models.Category{}); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, err, "delete category")
	}
	return nil
}

// ListCategories lists all categories, optionally filtered to active only.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]*models.Category, error) {
	var rows []models.Category
	var err error
	if activeOnly {
		err = s.hold().Find(&rows, badgerhold.Where("IsActive").Eq(true))
	} else {
		err = s.hold().Find(&rows, nil)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "list categories")
	}
	return toCategoryPointers(rows), nil
}

// GetActiveCategories returns every active category, for the linker and scanner.
func (s *Store) GetActiveCategories(ctx context.Context) ([]*models.Category, error) {
	var rows []models.Category
	if err := s.hold().Find(&rows, badgerhold.Where("IsActive").Eq(true)); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "get active categories")
	}
	return toCategoryPointers(rows), nil
}

// GetDueScheduledCategories returns active, schedule-enabled categories whose
// next_scheduled_run_at has passed, ordered by earliest next run.
func (s *Store) GetDueScheduledCategories(ctx context.Context, now time.Time) ([]*models.Category, error) {
	var rows []models.Category
	err := s.hold().Find(&rows, badgerhold.Where("IsActive").Eq(true).
		And("ScheduleEnabled").Eq(true).
		And("NextScheduledRunAt").Le(now).
		SortBy("NextScheduledRunAt"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "get due scheduled categories")
	}
	return toCategoryPointers(rows), nil
}

// UpdateScheduleTiming performs the single-row timing update after a scanner tick.
func (s *Store) UpdateScheduleTiming(ctx context.Context, categoryID string, lastRun, nextRun time.Time) error {
	cat, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	cat.LastScheduledRunAt = &lastRun
	cat.NextScheduledRunAt = &nextRun
	cat.UpdatedAt = time.Now().UTC()
	if err := s.hold().Update(cat.ID, cat); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, err, "update schedule timing")
	}
	return nil
}

func toCategoryPointers(rows []models.Category) []*models.Category {
	out := make([]*models.Category, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
