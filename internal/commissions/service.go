package commissions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dcastellanos/storefront-backend/internal/vendors"
	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	"github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/kvstore"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
	"github.com/dcastellanos/storefront-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// VendorDirectory resolves vendor ids to commission rates. A missing vendor
// is (nil, nil), not an error.
type VendorDirectory interface {
	Lookup(ctx context.Context, vendorID string) (*vendors.Info, error)
}

// Breakdown is the commission/earnings split for one vendor group subtotal.
// CommissionCents + VendorEarningsCents == SubtotalCents always holds.
type Breakdown struct {
	SubtotalCents       int64           `json:"subtotalCents"`
	CommissionRate      decimal.Decimal `json:"commissionRate"`
	CommissionCents     int64           `json:"commissionCents"`
	VendorEarningsCents int64           `json:"vendorEarningsCents"`
}

// SettlementInput carries the payout details for a paid transition.
type SettlementInput struct {
	PaymentMethod string  `json:"payment_method" validate:"required"`
	TransactionID *string `json:"transaction_id,omitempty"`
	Note          string  `json:"note,omitempty"`
}

// EarningsSummary aggregates a vendor's records for payout reporting.
type EarningsSummary struct {
	VendorID             string `json:"vendor_id"`
	RecordCount          int    `json:"record_count"`
	TotalEarningsCents   int64  `json:"total_earnings_cents"`
	PendingEarningsCents int64  `json:"pending_earnings_cents"`
	PaidEarningsCents    int64  `json:"paid_earnings_cents"`
	TotalCommissionCents int64  `json:"total_commission_cents"`
}

// Service owns the commission and settlement ledgers. Both are held in
// memory and checkpointed to the KV store after every mutation; NewService
// rehydrates them so the ledgers survive restarts.
type Service struct {
	directory   VendorDirectory
	store       kvstore.Store
	logg        *logger.Logger
	metrics     *metrics.EngineMetrics
	defaultRate decimal.Decimal

	mu          sync.RWMutex
	records     []models.CommissionRecord
	settlements []models.SettlementRecord
}

func NewService(ctx context.Context, directory VendorDirectory, store kvstore.Store, logg *logger.Logger, engineMetrics *metrics.EngineMetrics, defaultRatePercent float64) (*Service, error) {
	if directory == nil {
		return nil, errors.New(errors.CodeInternal, "commissions: vendor directory is required")
	}
	if store == nil {
		return nil, errors.New(errors.CodeInternal, "commissions: kv store is required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "commissions: logger is required")
	}
	if defaultRatePercent < 0 || defaultRatePercent > 100 {
		return nil, errors.New(errors.CodeInternal, "commissions: default rate must be between 0 and 100")
	}

	s := &Service{
		directory:   directory,
		store:       store,
		logg:        logg,
		metrics:     engineMetrics,
		defaultRate: decimal.NewFromFloat(defaultRatePercent),
	}
	if err := s.rehydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) rehydrate(ctx context.Context) error {
	var records []models.CommissionRecord
	if err := s.store.Load(ctx, kvstore.KeyCommissions, &records); err != nil && err != kvstore.ErrNotFound {
		return errors.Wrap(errors.CodeInternal, err, "failed to rehydrate commission ledger")
	}
	var settlements []models.SettlementRecord
	if err := s.store.Load(ctx, kvstore.KeySettlements, &settlements); err != nil && err != kvstore.ErrNotFound {
		return errors.Wrap(errors.CodeInternal, err, "failed to rehydrate settlement ledger")
	}
	s.records = records
	s.settlements = settlements
	return nil
}

// Compute returns the commission split for one vendor group subtotal. A
// vendor missing from the directory yields an all-zero breakdown rather than
// an error; a vendor present without an explicit rate gets the default rate.
// The commission is rounded half-up to a cent and the earnings are the exact
// remainder, so the split always balances.
func (s *Service) Compute(ctx context.Context, vendorID string, subtotalCents int64) Breakdown {
	rate := s.defaultRate

	info, err := s.directory.Lookup(ctx, vendorID)
	if err != nil {
		s.logg.Warn(s.logg.WithVendorID(ctx, vendorID), "vendor lookup failed, using default commission rate")
	} else if info == nil {
		return Breakdown{CommissionRate: decimal.Zero}
	} else if !info.CommissionRate.IsZero() {
		rate = info.CommissionRate
	}

	commission := decimal.NewFromInt(subtotalCents).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	return Breakdown{
		SubtotalCents:       subtotalCents,
		CommissionRate:      rate,
		CommissionCents:     commission,
		VendorEarningsCents: subtotalCents - commission,
	}
}

// Record creates one pending CommissionRecord per vendor group and
// checkpoints the ledger. The returned slice is in group order.
func (s *Service) Record(ctx context.Context, orderID string, groups []models.VendorGroup) ([]models.CommissionRecord, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	if len(groups) == 0 {
		return nil, errors.New(errors.CodeValidation, "at least one vendor group is required")
	}

	now := time.Now().UTC()
	created := make([]models.CommissionRecord, 0, len(groups))
	for _, group := range groups {
		breakdown := s.Compute(ctx, group.VendorID, group.SubtotalCents)
		created = append(created, models.CommissionRecord{
			ID:                  newLedgerID("com"),
			OrderID:             orderID,
			VendorID:            group.VendorID,
			VendorName:          group.VendorName,
			SubtotalCents:       breakdown.SubtotalCents,
			CommissionRate:      breakdown.CommissionRate,
			CommissionCents:     breakdown.CommissionCents,
			VendorEarningsCents: breakdown.VendorEarningsCents,
			Status:              enums.CommissionStatusPending,
			CreatedAt:           now,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]models.CommissionRecord{}, s.records...), created...)
	if err := s.store.Save(ctx, kvstore.KeyCommissions, next); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to checkpoint commission ledger")
	}
	s.records = next

	s.metrics.AddCommissionsRecorded(len(created))
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), fmt.Sprintf("recorded %d commission(s)", len(created)))
	return created, nil
}

// MarkPaid transitions a commission to paid and creates its settlement. The
// settlement amount is the commission's vendor earnings. Once paid, further
// calls return the existing settlement without creating another.
func (s *Service) MarkPaid(ctx context.Context, commissionID string, input SettlementInput) (*models.SettlementRecord, error) {
	if strings.TrimSpace(commissionID) == "" {
		return nil, errors.New(errors.CodeValidation, "commission id is required")
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, errors.New(errors.CodeValidation, "payment method is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.records {
		if s.records[i].ID == commissionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.New(errors.CodeNotFound, "commission not found")
	}

	if s.records[idx].Status == enums.CommissionStatusPaid {
		for i := range s.settlements {
			if s.settlements[i].CommissionID == commissionID {
				existing := s.settlements[i]
				return &existing, nil
			}
		}
		return nil, errors.New(errors.CodeInternal, "paid commission has no settlement")
	}

	now := time.Now().UTC()
	record := s.records[idx]
	record.Status = enums.CommissionStatusPaid
	record.PaidAt = &now

	settlement := models.SettlementRecord{
		ID:            newLedgerID("set"),
		CommissionID:  record.ID,
		VendorID:      record.VendorID,
		VendorName:    record.VendorName,
		AmountCents:   record.VendorEarningsCents,
		PaymentMethod: input.PaymentMethod,
		TransactionID: input.TransactionID,
		Note:          input.Note,
		CreatedAt:     now,
	}

	nextRecords := append([]models.CommissionRecord{}, s.records...)
	nextRecords[idx] = record
	nextSettlements := append(append([]models.SettlementRecord{}, s.settlements...), settlement)

	if err := s.store.Save(ctx, kvstore.KeyCommissions, nextRecords); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to checkpoint commission ledger")
	}
	if err := s.store.Save(ctx, kvstore.KeySettlements, nextSettlements); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to checkpoint settlement ledger")
	}
	s.records = nextRecords
	s.settlements = nextSettlements

	s.metrics.ObserveSettlement(settlement.AmountCents)
	s.logg.Info(s.logg.WithCommissionID(ctx, record.ID), "commission settled")
	return &settlement, nil
}

// ForVendor lists a vendor's commission records, optionally filtered by
// status, newest first.
func (s *Service) ForVendor(vendorID string, status *enums.CommissionStatus) ([]models.CommissionRecord, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, errors.New(errors.CodeValidation, "vendor id is required")
	}
	if status != nil && !status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid commission status")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CommissionRecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		record := s.records[i]
		if record.VendorID != vendorID {
			continue
		}
		if status != nil && record.Status != *status {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// Summary folds a vendor's records into payout aggregates.
func (s *Service) Summary(vendorID string) (*EarningsSummary, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, errors.New(errors.CodeValidation, "vendor id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &EarningsSummary{VendorID: vendorID}
	for i := range s.records {
		record := s.records[i]
		if record.VendorID != vendorID {
			continue
		}
		summary.RecordCount++
		summary.TotalCommissionCents += record.CommissionCents
		switch record.Status {
		case enums.CommissionStatusPending:
			summary.TotalEarningsCents += record.VendorEarningsCents
			summary.PendingEarningsCents += record.VendorEarningsCents
		case enums.CommissionStatusPaid:
			summary.TotalEarningsCents += record.VendorEarningsCents
			summary.PaidEarningsCents += record.VendorEarningsCents
		}
	}
	return summary, nil
}

// Pending is the admin-wide view of unsettled commissions, oldest first.
func (s *Service) Pending() []models.CommissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CommissionRecord, 0)
	for i := range s.records {
		if s.records[i].Status == enums.CommissionStatusPending {
			out = append(out, s.records[i])
		}
	}
	return out
}

// SettlementsForVendor lists a vendor's settlements, newest first.
func (s *Service) SettlementsForVendor(vendorID string) ([]models.SettlementRecord, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, errors.New(errors.CodeValidation, "vendor id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SettlementRecord, 0)
	for i := len(s.settlements) - 1; i >= 0; i-- {
		if s.settlements[i].VendorID == vendorID {
			out = append(out, s.settlements[i])
		}
	}
	return out, nil
}

// newLedgerID builds ids like com_1717351582931_a3f29c, unique enough for
// ledger entities without coordinating a sequence.
func newLedgerID(prefix string) string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
