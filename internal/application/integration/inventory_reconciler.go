package integration

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
)

// inventoryScanPageSize is the local page size used when scanning mapped products
const inventoryScanPageSize = 200

// InventoryReconciler pushes local stock of every mapped product back to the
// storefront. The local count always wins.
type InventoryReconciler struct {
	platform integration.Platform
	products catalog.ProductRepository
	pageSize int
	logger   *zap.Logger
}

// NewInventoryReconciler creates a new InventoryReconciler
func NewInventoryReconciler(platform integration.Platform, products catalog.ProductRepository, logger *zap.Logger) *InventoryReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryReconciler{
		platform: platform,
		products: products,
		pageSize: inventoryScanPageSize,
		logger:   logger,
	}
}

// Reconcile runs the inventory phase
func (r *InventoryReconciler) Reconcile(ctx context.Context) *integration.PhaseResult {
	result := integration.NewPhaseResult(integration.PhaseInventory)
	log := logger.Ctx(ctx, r.logger).With(zap.String("phase", string(integration.PhaseInventory)))

	filter := shared.Filter{Page: 1, PageSize: r.pageSize}
	for {
		if err := ctx.Err(); err != nil {
			result.Complete(deadlineError(err))
			return result
		}

		products, err := r.products.FindMapped(ctx, filter)
		if err != nil {
			log.Error("Failed to list mapped products", zap.Int("page", filter.Page), zap.Error(err))
			result.Complete(fmt.Errorf("list mapped products page %d: %w", filter.Page, err))
			return result
		}

		for idx := range products {
			if err := ctx.Err(); err != nil {
				result.Complete(deadlineError(err))
				return result
			}
			p := &products[idx]
			if err := r.platform.UpdateProductStock(ctx, *p.ExternalID, p.Stock); err != nil {
				log.Error("Failed to push stock",
					zap.Int64("external_id", *p.ExternalID),
					zap.String("sku", p.SKU),
					zap.Error(err),
				)
				result.RecordFailure(strconv.FormatInt(*p.ExternalID, 10), err)
				continue
			}
			result.RecordUpdated()
		}

		if len(products) < filter.PageSize {
			break
		}
		filter.Page++
	}

	result.Complete(nil)
	return result
}
