package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
)

// maxCatalogPages stops paging a listing whose page count never ends
const maxCatalogPages = 1000

// CatalogSynchronizer mirrors the remote category tree and simple products
// into the local catalog. Each item is written in its own transaction, so a
// bad item never rolls back its neighbours.
type CatalogSynchronizer struct {
	platform integration.Platform
	scope    TransactionScope
	pageSize int
	logger   *zap.Logger
}

// NewCatalogSynchronizer creates a new CatalogSynchronizer
func NewCatalogSynchronizer(platform integration.Platform, scope TransactionScope, pageSize int, logger *zap.Logger) *CatalogSynchronizer {
	if pageSize <= 0 || pageSize > integration.MaxPageSize {
		pageSize = integration.DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSynchronizer{
		platform: platform,
		scope:    scope,
		pageSize: pageSize,
		logger:   logger,
	}
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// SyncCategories fetches every remote category and upserts them parents
// first, so a child's parent already has a local id when the child is written.
func (s *CatalogSynchronizer) SyncCategories(ctx context.Context) *integration.PhaseResult {
	result := integration.NewPhaseResult(integration.PhaseCategories)
	log := logger.Ctx(ctx, s.logger).With(zap.String("phase", string(integration.PhaseCategories)))

	remote, fetchErr := s.fetchCategories(ctx)
	if fetchErr != nil {
		log.Error("Failed to fetch categories", zap.Error(fetchErr), zap.Int("fetched", len(remote)))
	}

	for _, rc := range orderParentsFirst(remote) {
		if err := ctx.Err(); err != nil {
			result.Complete(deadlineError(err))
			return result
		}
		created, err := s.upsertCategory(ctx, rc)
		if err != nil {
			log.Error("Failed to sync category", zap.Int64("external_id", rc.ID), zap.Error(err))
			result.RecordFailure(strconv.FormatInt(rc.ID, 10), err)
			continue
		}
		if created {
			result.RecordCreated()
		} else {
			result.RecordUpdated()
		}
	}

	result.Complete(fetchErr)
	return result
}

func (s *CatalogSynchronizer) fetchCategories(ctx context.Context) ([]integration.RemoteCategory, error) {
	var all []integration.RemoteCategory
	for page := 1; page <= maxCatalogPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, deadlineError(err)
		}
		req := integration.PageRequest{Page: page, PerPage: s.pageSize}
		resp, err := s.platform.ListCategories(ctx, req)
		if err != nil {
			return all, fmt.Errorf("list categories page %d: %w", page, err)
		}
		all = append(all, resp.Items...)
		if !resp.HasMore(s.pageSize) {
			break
		}
	}
	return all, nil
}

// orderParentsFirst sorts categories so that every category whose parent is
// part of the batch comes after that parent. Categories caught in a parent
// cycle keep their relative order at the end.
func orderParentsFirst(in []integration.RemoteCategory) []integration.RemoteCategory {
	inBatch := make(map[int64]struct{}, len(in))
	for _, c := range in {
		inBatch[c.ID] = struct{}{}
	}

	out := make([]integration.RemoteCategory, 0, len(in))
	placed := make(map[int64]struct{}, len(in))
	pending := in
	for len(pending) > 0 {
		var next []integration.RemoteCategory
		for _, c := range pending {
			_, parentKnown := inBatch[c.ParentID]
			_, parentPlaced := placed[c.ParentID]
			if c.ParentID == 0 || !parentKnown || parentPlaced {
				out = append(out, c)
				placed[c.ID] = struct{}{}
				continue
			}
			next = append(next, c)
		}
		if len(next) == len(pending) {
			return append(out, next...)
		}
		pending = next
	}
	return out
}

// upsertCategory inserts or refreshes one category. Only name, slug and
// description are refreshed on existing rows; brand and parent are set once.
func (s *CatalogSynchronizer) upsertCategory(ctx context.Context, rc integration.RemoteCategory) (bool, error) {
	created := false
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Categories().FindByExternalID(ctx, rc.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			existing.ApplyRemote(rc.Name, rc.Slug, rc.Description)
			return repos.Categories().Update(ctx, existing)
		}

		category, err := catalog.NewExternalCategory(rc.ID, rc.Name, rc.Slug, rc.Description)
		if err != nil {
			return err
		}
		if rc.ParentID != 0 {
			parent, err := repos.Categories().FindByExternalID(ctx, rc.ParentID)
			switch {
			case err == nil:
				category.SetParent(&parent.ID)
			case !errors.Is(err, shared.ErrNotFound):
				return err
			}
		}
		if err := repos.Categories().Create(ctx, category); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// SyncProducts pages through remote products and upserts the simple ones.
// Variable and grouped products are counted as skipped.
func (s *CatalogSynchronizer) SyncProducts(ctx context.Context) *integration.PhaseResult {
	result := integration.NewPhaseResult(integration.PhaseProducts)
	log := logger.Ctx(ctx, s.logger).With(zap.String("phase", string(integration.PhaseProducts)))

	for page := 1; page <= maxCatalogPages; page++ {
		if err := ctx.Err(); err != nil {
			result.Complete(deadlineError(err))
			return result
		}

		resp, err := s.platform.ListProducts(ctx, integration.PageRequest{Page: page, PerPage: s.pageSize})
		if err != nil {
			log.Error("Failed to fetch products", zap.Int("page", page), zap.Error(err))
			result.Complete(fmt.Errorf("list products page %d: %w", page, err))
			return result
		}

		for _, rp := range resp.Items {
			if err := ctx.Err(); err != nil {
				result.Complete(deadlineError(err))
				return result
			}
			if !rp.IsSimple() {
				log.Debug("Skipping non-simple product",
					zap.Int64("external_id", rp.ID),
					zap.String("type", rp.Type),
				)
				result.RecordSkipped()
				continue
			}
			created, err := s.upsertProduct(ctx, rp)
			if err != nil {
				log.Error("Failed to sync product", zap.Int64("external_id", rp.ID), zap.Error(err))
				result.RecordFailure(strconv.FormatInt(rp.ID, 10), err)
				continue
			}
			if created {
				result.RecordCreated()
			} else {
				result.RecordUpdated()
			}
		}

		if !resp.HasMore(s.pageSize) {
			break
		}
	}

	result.Complete(nil)
	return result
}

func (s *CatalogSynchronizer) upsertProduct(ctx context.Context, rp integration.RemoteProduct) (bool, error) {
	created := false
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		categoryID, brand, err := resolveProductCategory(ctx, repos.Categories(), rp.CategoryIDs)
		if err != nil {
			return err
		}

		stock := 0
		if rp.StockQuantity != nil {
			stock = *rp.StockQuantity
		}
		snapshot := catalog.ProductSnapshot{
			ExternalID:  rp.ID,
			Name:        rp.Name,
			SKU:         rp.SKU,
			Description: rp.Description,
			Price:       integration.ParseAmount(rp.Price),
			Stock:       stock,
			Brand:       brand,
			CategoryID:  categoryID,
			URL:         rp.Permalink,
			Active:      rp.IsPublished(),
			Images:      rp.Images,
			Attributes:  rp.Attributes,
		}

		existing, err := repos.Products().FindByExternalID(ctx, rp.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			if err := existing.ApplySnapshot(snapshot); err != nil {
				return err
			}
			return repos.Products().Update(ctx, existing)
		}

		product, err := catalog.NewExternalProduct(snapshot)
		if err != nil {
			return err
		}
		if err := repos.Products().Create(ctx, product); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// resolveProductCategory returns the first remote category with a local
// mirror and the brand it carries. Without one the product gets the default brand.
func resolveProductCategory(ctx context.Context, categories catalog.CategoryRepository, externalIDs []int64) (*uuid.UUID, catalog.Brand, error) {
	for _, extID := range externalIDs {
		category, err := categories.FindByExternalID(ctx, extID)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		id := category.ID
		return &id, category.Brand, nil
	}
	return nil, catalog.DefaultBrand, nil
}

// deadlineError maps a context error onto the run deadline sentinel
func deadlineError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", integration.ErrSyncDeadlineExceeded, err)
	}
	return err
}
