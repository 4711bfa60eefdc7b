package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

// MatchResult is the outcome of resolving a contact to a customer
type MatchResult struct {
	Customer  *partner.Customer
	MatchedBy partner.MatchKey
	// Conflict is set when the identifiers pointed at different customers
	Conflict *partner.IdentityConflict
}

// Matched reports whether an existing customer was found
func (r *MatchResult) Matched() bool {
	return r != nil && r.Customer != nil
}

// IdentityMatcher resolves contact identifiers to an existing customer.
// Keys are tried in partner.MatchPriority order; every supplied key is looked
// up so disagreements can be queued for review.
type IdentityMatcher struct {
	countryCode string
	metrics     *telemetry.SyncMetrics
	logger      *zap.Logger
}

// NewIdentityMatcher creates a new IdentityMatcher
func NewIdentityMatcher(countryCode string, metrics *telemetry.SyncMetrics, logger *zap.Logger) *IdentityMatcher {
	if countryCode == "" {
		countryCode = partner.DefaultCountryCallingCode
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityMatcher{
		countryCode: countryCode,
		metrics:     metrics,
		logger:      logger,
	}
}

// Match looks the identifiers up against customers. conflicts may be nil, in
// which case a detected conflict is returned but not stored.
func (m *IdentityMatcher) Match(
	ctx context.Context,
	customers partner.CustomerRepository,
	conflicts partner.IdentityConflictRepository,
	source string,
	ids partner.Identifiers,
) (*MatchResult, error) {
	ids = ids.Normalize()
	result := &MatchResult{}
	if ids.IsEmpty() {
		return result, nil
	}

	hits := make(map[partner.MatchKey]uuid.UUID, len(partner.MatchPriority))
	for _, key := range partner.MatchPriority {
		customer, err := m.lookup(ctx, customers, key, ids)
		if err != nil {
			return nil, fmt.Errorf("match by %s: %w", key, err)
		}
		if customer == nil {
			continue
		}
		hits[key] = customer.ID
		if result.Customer == nil {
			result.Customer = customer
			result.MatchedBy = key
		}
	}

	if result.Customer == nil {
		return result, nil
	}

	conflict := partner.NewIdentityConflict(source, ids, hits, result.Customer.ID)
	if conflict == nil {
		return result, nil
	}
	result.Conflict = conflict

	logger.Ctx(ctx, m.logger).Warn("Identity conflict detected",
		zap.String("source", source),
		zap.String("chosen_customer_id", result.Customer.ID.String()),
		zap.String("matched_by", string(result.MatchedBy)),
		zap.Int("distinct_customers", countDistinct(hits)),
	)
	m.metrics.RecordConflict(ctx)

	if conflicts != nil {
		if err := conflicts.Create(ctx, conflict); err != nil {
			return nil, fmt.Errorf("record identity conflict: %w", err)
		}
	}
	return result, nil
}

func (m *IdentityMatcher) lookup(
	ctx context.Context,
	customers partner.CustomerRepository,
	key partner.MatchKey,
	ids partner.Identifiers,
) (*partner.Customer, error) {
	var (
		customer *partner.Customer
		err      error
	)
	switch key {
	case partner.MatchKeyIDNumber:
		if ids.IDNumber == "" {
			return nil, nil
		}
		customer, err = customers.FindByIDNumber(ctx, ids.IDNumber)
	case partner.MatchKeyPhone:
		candidates := partner.PhoneCandidates(ids.Phone, m.countryCode)
		if len(candidates) == 0 {
			return nil, nil
		}
		customer, err = customers.FindByAnyPhone(ctx, candidates)
	case partner.MatchKeyEmail:
		if ids.Email == "" {
			return nil, nil
		}
		customer, err = customers.FindByEmail(ctx, ids.Email)
	default:
		return nil, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return customer, err
}

func countDistinct(hits map[partner.MatchKey]uuid.UUID) int {
	seen := make(map[uuid.UUID]struct{}, len(hits))
	for _, id := range hits {
		seen[id] = struct{}{}
	}
	return len(seen)
}
