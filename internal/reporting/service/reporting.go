package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	alertrepo "github.com/stockflow/stockflow-backend/internal/alerting/repository"
	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	stockrepo "github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// DefaultSlowMoverDays is the lookback window for slow mover detection
const DefaultSlowMoverDays = 90

// ReportingService computes stock valuation, rotation metrics and the
// dashboard summary from live data. Nothing here is persisted.
type ReportingService struct {
	articleRepo  *catalogrepo.ArticleRepository
	movementRepo *stockrepo.MovementRepository
	alertRepo    *alertrepo.AlertRepository
	logger       *logger.Logger
}

// NewReportingService creates a new reporting service
func NewReportingService(
	articleRepo *catalogrepo.ArticleRepository,
	movementRepo *stockrepo.MovementRepository,
	alertRepo *alertrepo.AlertRepository,
	log *logger.Logger,
) *ReportingService {
	return &ReportingService{
		articleRepo:  articleRepo,
		movementRepo: movementRepo,
		alertRepo:    alertRepo,
		logger:       log,
	}
}

// StoreValuation values the active stock of one store
func (s *ReportingService) StoreValuation(ctx context.Context, storeID string) (*Valuation, error) {
	articles, err := s.articleRepo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return StockValuation(articles), nil
}

// LowStockEntry is one line of the dashboard low-stock list
type LowStockEntry struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Designation  string `json:"designation"`
	CurrentStock int    `json:"stock_actuel"`
	MinStock     int    `json:"stock_min"`
}

// Dashboard is the store summary shown on the home screen
type Dashboard struct {
	TotalArticles    int             `json:"total_articles"`
	LowStockCount    int             `json:"articles_faibles_count"`
	StockoutCount    int             `json:"articles_rupture_count"`
	Valuation        *Valuation      `json:"valorisation"`
	UnresolvedAlerts map[string]int  `json:"alertes_ouvertes"`
	LowStockArticles []LowStockEntry `json:"articles_faibles"`
}

// StoreDashboard builds the dashboard summary for one store. The low-stock
// list is capped at 10 entries.
func (s *ReportingService) StoreDashboard(ctx context.Context, storeID string) (*Dashboard, error) {
	articles, err := s.articleRepo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		TotalArticles:    len(articles),
		Valuation:        StockValuation(articles),
		LowStockArticles: []LowStockEntry{},
	}

	for _, a := range articles {
		if a.CurrentStock == 0 {
			dashboard.StockoutCount++
		}
		if a.CurrentStock <= a.MinStock {
			dashboard.LowStockCount++
			if len(dashboard.LowStockArticles) < 10 {
				dashboard.LowStockArticles = append(dashboard.LowStockArticles, LowStockEntry{
					ID:           a.ID,
					Code:         a.Code,
					Designation:  a.Designation,
					CurrentStock: a.CurrentStock,
					MinStock:     a.MinStock,
				})
			}
		}
	}

	alerts, err := s.alertRepo.CountUnresolvedByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	dashboard.UnresolvedAlerts = alerts

	return dashboard, nil
}

// SlowMover is an article with stock but no outgoing movement in the window
type SlowMover struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Designation  string          `json:"designation"`
	CurrentStock int             `json:"stock_actuel"`
	TiedUpValue  decimal.Decimal `json:"valeur_immobilisee"`
}

// SlowMovers finds active articles holding stock that saw no sortie
// movement in the last days, ranked by tied-up purchase value.
func (s *ReportingService) SlowMovers(ctx context.Context, storeID string, days int) ([]SlowMover, error) {
	if days <= 0 {
		days = DefaultSlowMoverDays
	}
	since := time.Now().AddDate(0, 0, -days)

	articles, err := s.articleRepo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	movers := []SlowMover{}
	for _, a := range articles {
		if a.CurrentStock == 0 {
			continue
		}
		sold, err := s.movementRepo.SumOutgoingSince(ctx, a.ID, since)
		if err != nil {
			return nil, err
		}
		if sold > 0 {
			continue
		}
		value := decimal.NewFromInt(int64(a.CurrentStock)).Mul(a.PurchasePrice)
		movers = append(movers, SlowMover{
			ID:           a.ID,
			Code:         a.Code,
			Designation:  a.Designation,
			CurrentStock: a.CurrentStock,
			TiedUpValue:  value.Round(3),
		})
	}

	sort.SliceStable(movers, func(i, j int) bool {
		return movers[i].TiedUpValue.GreaterThan(movers[j].TiedUpValue)
	})
	return movers, nil
}

// ArticleStats are the rotation metrics of one article over a window
type ArticleStats struct {
	ArticleID    string           `json:"article_id"`
	WindowDays   int              `json:"window_days"`
	UnitsSold    int              `json:"units_sold"`
	Rotation     float64          `json:"rotation"`
	CoverageDays int              `json:"couverture_jours"`
	Margin       *MarginBreakdown `json:"marge"`
	EOQ          int              `json:"eoq"`
}

// ArticleStats computes rotation, coverage, margin and EOQ for one article
// from its sortie movements over the last days. The EOQ assumes a fixed
// order cost and a holding cost of 20% of the purchase price per year,
// projected from the window demand.
func (s *ReportingService) ArticleStats(ctx context.Context, articleID string, days int) (*ArticleStats, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	article, err := s.articleRepo.GetByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	sold, err := s.movementRepo.SumOutgoingSince(ctx, articleID, since)
	if err != nil {
		return nil, err
	}

	avgDaily := float64(sold) / float64(days)
	annualDemand := avgDaily * 365

	const orderCost = 10.0
	holdingCost := article.PurchasePrice.InexactFloat64() * 0.20

	return &ArticleStats{
		ArticleID:    article.ID,
		WindowDays:   days,
		UnitsSold:    sold,
		Rotation:     Rotation(float64(sold), float64(article.CurrentStock)),
		CoverageDays: CoverageDays(article.CurrentStock, avgDaily),
		Margin:       Margin(article.PurchasePrice, article.SalePrice),
		EOQ:          EOQ(annualDemand, orderCost, holdingCost),
	}, nil
}
