package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/trade"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

const (
	// DefaultMaxOrderPages bounds the remote pages read per run
	DefaultMaxOrderPages = 20
	// DefaultIDNumberMetaKey is the order meta key carrying the buyer's ID number
	DefaultIDNumberMetaKey = "_billing_id_number"

	// cursorOverlap re-reads orders created in the last second before the
	// watermark, since the remote "after" filter is exclusive and second-granular.
	cursorOverlap = time.Second
)

// OrderImporterConfig holds order import settings
type OrderImporterConfig struct {
	PageSize        int
	MaxPages        int
	MatchKeys       []partner.MatchKey
	IDNumberMetaKey string
}

func (c *OrderImporterConfig) applyDefaults() {
	if c.PageSize <= 0 || c.PageSize > integration.MaxPageSize {
		c.PageSize = integration.DefaultPageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxOrderPages
	}
	if len(c.MatchKeys) == 0 {
		c.MatchKeys = []partner.MatchKey{partner.MatchKeyEmail}
	}
	if c.IDNumberMetaKey == "" {
		c.IDNumberMetaKey = DefaultIDNumberMetaKey
	}
}

// orderOutcome describes what importing one order did
type orderOutcome struct {
	created  bool
	conflict bool
}

// OrderImporter imports remote orders exactly once per external id. Every
// order is written in its own transaction together with its customer and
// items; orders seen before only get their status refreshed.
type OrderImporter struct {
	platform integration.Platform
	scope    TransactionScope
	matcher  *IdentityMatcher
	config   OrderImporterConfig
	logger   *zap.Logger
}

// NewOrderImporter creates a new OrderImporter
func NewOrderImporter(
	platform integration.Platform,
	scope TransactionScope,
	matcher *IdentityMatcher,
	cfg OrderImporterConfig,
	logger *zap.Logger,
) *OrderImporter {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderImporter{
		platform: platform,
		scope:    scope,
		matcher:  matcher,
		config:   cfg,
		logger:   logger,
	}
}

// Import runs the orders phase. The cursor is saved once at the end and only
// covers the orders before the first failure, so a failed order is read
// again on the next run.
func (i *OrderImporter) Import(ctx context.Context) *integration.PhaseResult {
	result := integration.NewPhaseResult(integration.PhaseOrders)
	log := logger.Ctx(ctx, i.logger).With(zap.String("phase", string(integration.PhaseOrders)))

	cursor, err := i.loadCursor(ctx)
	if err != nil {
		log.Error("Failed to load order cursor", zap.Error(err))
		result.Complete(err)
		return result
	}
	start := *cursor

	query := integration.OrderQuery{
		PageRequest: integration.PageRequest{PerPage: i.config.PageSize},
		Statuses:    integration.ImportableOrderStatuses,
	}
	if !cursor.IsZero() {
		after := cursor.LastSyncedAt.Add(-cursorOverlap)
		query.After = &after
	}

	blocked := false
	fatal := i.eachOrder(ctx, query, func(order integration.RemoteOrder) {
		outcome, err := i.importOrder(ctx, order)
		if err != nil {
			log.Error("Failed to import order", zap.Int64("external_id", order.ID), zap.Error(err))
			result.RecordFailure(strconv.FormatInt(order.ID, 10), err)
			blocked = true
			return
		}
		if outcome.created {
			result.RecordCreated()
		} else {
			result.RecordUpdated()
		}
		if outcome.conflict {
			result.Conflicts++
		}
		if !blocked && order.DateCreated != nil {
			cursor.Advance(order.ID, *order.DateCreated)
		}
	})
	if fatal != nil {
		log.Error("Order import stopped early", zap.Error(fatal))
	}

	if cursor.LastExternalID != start.LastExternalID || !sameInstant(cursor.LastSyncedAt, start.LastSyncedAt) {
		if err := i.saveCursor(ctx, cursor); err != nil {
			log.Error("Failed to save order cursor", zap.Error(err))
			if fatal == nil {
				fatal = err
			}
		} else {
			log.Info("Order cursor advanced",
				zap.Int64("last_external_id", cursor.LastExternalID),
				zap.Timep("last_synced_at", cursor.LastSyncedAt),
			)
		}
	}

	result.Complete(fatal)
	return result
}

// eachOrder pages through remote orders up to MaxPages, calling fn per order.
// It returns the error that stopped paging early, if any.
func (i *OrderImporter) eachOrder(ctx context.Context, query integration.OrderQuery, fn func(integration.RemoteOrder)) error {
	for page := 1; page <= i.config.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return deadlineError(err)
		}
		query.Page = page
		resp, err := i.platform.ListOrders(ctx, query)
		if err != nil {
			return fmt.Errorf("list orders page %d: %w", page, err)
		}
		for _, order := range resp.Items {
			if err := ctx.Err(); err != nil {
				return deadlineError(err)
			}
			fn(order)
		}
		if !resp.HasMore(i.config.PageSize) {
			return nil
		}
	}
	logger.Ctx(ctx, i.logger).Warn("Order page limit reached", zap.Int("max_pages", i.config.MaxPages))
	return nil
}

func (i *OrderImporter) loadCursor(ctx context.Context) (*integration.SyncCursor, error) {
	var cursor *integration.SyncCursor
	err := i.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.Cursors().Get(ctx, integration.OrderCursorName)
		if err != nil {
			return err
		}
		cursor = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	if cursor.Name == "" {
		cursor.Name = integration.OrderCursorName
	}
	return cursor, nil
}

func (i *OrderImporter) saveCursor(ctx context.Context, cursor *integration.SyncCursor) error {
	// the run deadline may have passed; the watermark of finished orders is still worth keeping
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return i.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Cursors().Save(ctx, cursor)
	})
}

// importOrder writes one remote order in a single transaction
func (i *OrderImporter) importOrder(ctx context.Context, ro integration.RemoteOrder) (orderOutcome, error) {
	var outcome orderOutcome
	ctx, span := telemetry.StartSpan(ctx, "sync.order", telemetry.WithAttribute(telemetry.SpanAttrExternalID, ro.ID))
	defer span.End()
	if ro.ID <= 0 {
		return outcome, fmt.Errorf("%w: missing id", integration.ErrInvalidRemoteOrder)
	}

	status := integration.MapOrderStatus(ro.Status)
	payment := integration.MapPaymentStatus(ro.Status, ro.DatePaid)

	err := i.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Orders().FindByExternalID(ctx, ro.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			if existing.RefreshStatus(status, payment) {
				return repos.Orders().UpdateStatus(ctx, existing)
			}
			return nil
		}

		brand := orderBrand(ro)
		customer, conflict, err := i.resolveCustomer(ctx, repos, ro, brand)
		if err != nil {
			return err
		}
		outcome.conflict = conflict

		order, err := i.buildOrder(ctx, repos, ro, customer, brand, status, payment)
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return err
		}
		outcome.created = true
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return outcome, err
	}
	telemetry.SetOK(span)
	return outcome, nil
}

// resolveCustomer finds the buyer with the configured match keys, creating
// the customer from the billing address when nobody matches.
func (i *OrderImporter) resolveCustomer(
	ctx context.Context,
	repos TransactionalRepositories,
	ro integration.RemoteOrder,
	brand catalog.Brand,
) (*partner.Customer, bool, error) {
	ids := partner.Identifiers{
		IDNumber: ro.Meta[i.config.IDNumberMetaKey],
		Phone:    ro.Billing.Phone,
		Email:    ro.Billing.Email,
	}

	match, err := i.matcher.Match(ctx, repos.Customers(), repos.Conflicts(), partner.OrderConflictSource(ro.ID), ids.Only(i.config.MatchKeys...))
	if err != nil {
		return nil, false, err
	}

	if match.Matched() {
		customer := match.Customer
		if customer.RefreshAddress(ro.Billing) {
			if err := repos.Customers().Update(ctx, customer); err != nil {
				return nil, false, fmt.Errorf("refresh customer: %w", err)
			}
		}
		return customer, match.Conflict != nil, nil
	}

	customer, err := partner.NewCustomer(ro.Billing.FirstName, ro.Billing.LastName, ids, partner.CustomerSourceEcommerce)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", integration.ErrInvalidRemoteOrder, err)
	}
	customer.Brand = brand.String()
	customer.RefreshAddress(ro.Billing)
	if err := repos.Customers().Create(ctx, customer); err != nil {
		return nil, false, fmt.Errorf("create customer: %w", err)
	}
	return customer, false, nil
}

func (i *OrderImporter) buildOrder(
	ctx context.Context,
	repos TransactionalRepositories,
	ro integration.RemoteOrder,
	customer *partner.Customer,
	brand catalog.Brand,
	status trade.OrderStatus,
	payment trade.PaymentStatus,
) (*trade.Order, error) {
	order, err := trade.NewExternalOrder(customer.ID, ro.ID, ro.DateCreated, ro.DateModified)
	if err != nil {
		return nil, err
	}
	order.Status = status
	order.PaymentStatus = payment
	order.Currency = ro.Currency
	order.PaymentMethod = ro.PaymentMethod
	order.Brand = brand.String()
	order.BillingAddress = ro.Billing
	order.ShippingAddress = ro.Shipping
	order.Notes = ro.CustomerNote

	productIDs, err := repos.Products().FindIDsByExternalIDs(ctx, lineProductIDs(ro.LineItems))
	if err != nil {
		return nil, fmt.Errorf("map line products: %w", err)
	}
	for _, line := range ro.LineItems {
		err := order.AddItem(
			mappedProduct(productIDs, line.ProductID),
			line.Name,
			line.SKU,
			line.Quantity,
			integration.ParseAmount(line.Price),
			integration.ParseAmount(line.Total),
			line.Meta,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", integration.ErrInvalidRemoteOrder, line.ID, err)
		}
	}

	order.TotalAmount = integration.ParseAmount(ro.Total)
	if order.TotalAmount.IsZero() {
		order.TotalAmount = order.ItemsTotal()
	}
	return order, nil
}

// orderBrand infers the order's business line from its line-item names
func orderBrand(ro integration.RemoteOrder) catalog.Brand {
	names := make([]string, 0, len(ro.LineItems))
	for _, line := range ro.LineItems {
		names = append(names, line.Name)
	}
	return catalog.InferBrand(names...)
}

func lineProductIDs(lines []integration.RemoteLineItem) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if line.ProductID > 0 {
			ids = append(ids, line.ProductID)
		}
	}
	return ids
}

func mappedProduct(ids map[int64]uuid.UUID, externalID int64) *uuid.UUID {
	id, ok := ids[externalID]
	if !ok {
		return nil
	}
	return &id
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
