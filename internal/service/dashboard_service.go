package service

import (
	"time"

	"go-pos-backoffice/internal/repository"

	"github.com/shopspring/decimal"
)

const lowStockThreshold = 20

type DashboardStats struct {
	MonthlyRevenue      decimal.Decimal `json:"monthly_revenue"`
	RevenueGrowth       float64         `json:"revenue_growth"`
	MonthlyTransactions int64           `json:"monthly_transactions"`
	NewCustomers        int64           `json:"new_customers"`
	CustomerGrowth      float64         `json:"customer_growth"`
	LowStock            int64           `json:"low_stock"`
}

type DashboardData struct {
	Stats          DashboardStats                 `json:"stats"`
	TopCustomers   []repository.TopCustomerRow    `json:"top_customers"`
	TopProducts    []repository.TopProductRow     `json:"top_products"`
	MonthlyRevenue []repository.MonthlyRevenueRow `json:"monthly_revenue"`
}

type DashboardService interface {
	GetDashboard() (*DashboardData, error)
}

type dashboardService struct {
	txRepo       repository.TransactionRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
}

func NewDashboardService(
	txRepo repository.TransactionRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
) DashboardService {
	return &dashboardService{
		txRepo:       txRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
	}
}

func (s *dashboardService) GetDashboard() (*DashboardData, error) {
	now := time.Now()
	thisMonthStart := startOfMonth(now)
	thisMonthEnd := thisMonthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	lastMonthStart := thisMonthStart.AddDate(0, -1, 0)
	lastMonthEnd := thisMonthStart.Add(-time.Nanosecond)

	thisRevenue, err := s.txRepo.RevenueBetween(thisMonthStart, thisMonthEnd)
	if err != nil {
		return nil, err
	}
	lastRevenue, err := s.txRepo.RevenueBetween(lastMonthStart, lastMonthEnd)
	if err != nil {
		return nil, err
	}
	txCount, err := s.txRepo.CountHeadersBetween(thisMonthStart, thisMonthEnd)
	if err != nil {
		return nil, err
	}
	thisCustomers, err := s.customerRepo.CountCreatedBetween(thisMonthStart, thisMonthEnd)
	if err != nil {
		return nil, err
	}
	lastCustomers, err := s.customerRepo.CountCreatedBetween(lastMonthStart, lastMonthEnd)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.productRepo.CountLowStock(lowStockThreshold)
	if err != nil {
		return nil, err
	}

	topCustomers, err := s.txRepo.TopCustomers(lastMonthStart, thisMonthEnd, 10)
	if err != nil {
		return nil, err
	}
	topProducts, err := s.txRepo.TopProducts(lastMonthStart, thisMonthEnd, 10)
	if err != nil {
		return nil, err
	}

	seriesStart := startOfMonth(now.AddDate(0, -5, 0))
	monthly, err := s.txRepo.MonthlyRevenue(seriesStart, thisMonthEnd)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		Stats: DashboardStats{
			MonthlyRevenue:      thisRevenue.Round(0),
			RevenueGrowth:       growthRate(thisRevenue, lastRevenue),
			MonthlyTransactions: txCount,
			NewCustomers:        thisCustomers,
			CustomerGrowth:      growthCount(thisCustomers, lastCustomers),
			LowStock:            lowStock,
		},
		TopCustomers:   topCustomers,
		TopProducts:    topProducts,
		MonthlyRevenue: fillMissingMonths(monthly, seriesStart, now),
	}, nil
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func growthRate(current, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	rate, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return rate
}

func growthCount(current, previous int64) float64 {
	if previous <= 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// fillMissingMonths pads the revenue series so every month in the window is
// present, zero-valued when no invoice fell in it.
func fillMissingMonths(rows []repository.MonthlyRevenueRow, start, end time.Time) []repository.MonthlyRevenueRow {
	byMonth := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = row.Total
	}

	var filled []repository.MonthlyRevenueRow
	for t := startOfMonth(start); !t.After(end); t = t.AddDate(0, 1, 0) {
		month := t.Format("2006-01")
		total, ok := byMonth[month]
		if !ok {
			total = decimal.Zero
		}
		filled = append(filled, repository.MonthlyRevenueRow{Month: month, Total: total})
	}
	return filled
}
