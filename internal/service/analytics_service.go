package service

import (
	"context"
	"time"

	"shopdesk/internal/store"
	"shopdesk/internal/util"

	"go.uber.org/zap"
)

// AnalyticsStore is the rollup-query surface. Satisfied by *store.Store.
type AnalyticsStore interface {
	GetSalesSummary(ctx context.Context, from, to time.Time) (*store.SalesSummary, error)
	GetTopProducts(ctx context.Context, from, to time.Time, limit int) ([]store.ProductSales, error)
	GetStaffSales(ctx context.Context, from, to time.Time) ([]store.StaffSales, error)
}

// AnalyticsService serves the sales dashboards
type AnalyticsService struct {
	store  AnalyticsStore
	logger *zap.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		logger: util.NamedLogger("analytics"),
	}
}

// SalesReport bundles the rollups for one date range
type SalesReport struct {
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Summary     *store.SalesSummary  `json:"summary"`
	TopProducts []store.ProductSales `json:"top_products"`
	StaffSales  []store.StaffSales   `json:"staff_sales"`
}

// SalesReportFor computes the full report for orders created in [from, to)
func (s *AnalyticsService) SalesReportFor(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	ctx, span := util.StartSpan(ctx, "AnalyticsService.SalesReportFor")
	defer span.End()

	summary, err := s.store.GetSalesSummary(ctx, from, to)
	if err != nil {
		return nil, err
	}

	topProducts, err := s.store.GetTopProducts(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}

	staffSales, err := s.store.GetStaffSales(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &SalesReport{
		From:        from,
		To:          to,
		Summary:     summary,
		TopProducts: topProducts,
		StaffSales:  staffSales,
	}, nil
}
