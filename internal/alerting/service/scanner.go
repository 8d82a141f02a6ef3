package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stockflow/stockflow-backend/internal/alerting/repository"
	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

// expiryWindowDays is how far ahead the scanner looks for expiring articles
const expiryWindowDays = 30

// expiryUrgentDays marks expiry alerts as high severity
const expiryUrgentDays = 7

// EventPublisher publishes alert events
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ScanResult summarizes one store scan
type ScanResult struct {
	TotalArticles   int `json:"total_articles"`
	Stockouts       int `json:"ruptures"`
	LowStock        int `json:"stock_faible"`
	ExpiringSoon    int `json:"peremption_proche"`
	AlertsGenerated int `json:"alertes_generees"`
}

// Scanner walks a store's articles and raises alerts for stockouts, low
// stock and upcoming expiry dates.
type Scanner struct {
	articleRepo *catalogrepo.ArticleRepository
	storeRepo   *catalogrepo.StoreRepository
	alertRepo   *repository.AlertRepository
	publisher   EventPublisher
	logger      *logger.Logger
}

// NewScanner creates a new stock scanner
func NewScanner(
	articleRepo *catalogrepo.ArticleRepository,
	storeRepo *catalogrepo.StoreRepository,
	alertRepo *repository.AlertRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *Scanner {
	return &Scanner{
		articleRepo: articleRepo,
		storeRepo:   storeRepo,
		alertRepo:   alertRepo,
		publisher:   publisher,
		logger:      log,
	}
}

// ScanStore scans every active article of one store. A failing article is
// logged and skipped, the scan keeps going.
func (s *Scanner) ScanStore(ctx context.Context, storeID string) (*ScanResult, error) {
	store, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	articles, err := s.articleRepo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("scan store %s: list articles: %w", storeID, err)
	}

	now := time.Now()
	result := &ScanResult{TotalArticles: len(articles)}

	for _, article := range articles {
		for _, alert := range s.evaluate(article, now, result) {
			if err := s.alertRepo.Create(ctx, alert); err != nil {
				s.logger.Error().Err(err).
					Str("article_id", article.ID).
					Str("kind", alert.Kind).
					Msg("failed to create alert")
				continue
			}
			result.AlertsGenerated++
			s.publishAlert(ctx, store.CompanyID, alert)
		}
	}

	s.logger.Info().
		Str("store_id", storeID).
		Int("articles", result.TotalArticles).
		Int("alerts", result.AlertsGenerated).
		Msg("stock scan done")
	return result, nil
}

// evaluate applies the alert rules to one article. Stockout and low stock
// are mutually exclusive, expiry is checked independently.
func (s *Scanner) evaluate(article *catalogrepo.Article, now time.Time, result *ScanResult) []*repository.Alert {
	var alerts []*repository.Alert
	articleID := article.ID

	if article.CurrentStock == 0 {
		result.Stockouts++
		alerts = append(alerts, &repository.Alert{
			ArticleID: &articleID,
			StoreID:   article.StoreID,
			Kind:      repository.KindStockout,
			Severity:  repository.SeverityCritical,
			Message:   fmt.Sprintf("Rupture de stock: %s (%s)", article.Designation, article.Code),
		})
	} else if article.CurrentStock <= article.MinStock {
		result.LowStock++
		alerts = append(alerts, &repository.Alert{
			ArticleID: &articleID,
			StoreID:   article.StoreID,
			Kind:      repository.KindLowStock,
			Severity:  repository.SeverityHigh,
			Message: fmt.Sprintf("Stock faible: %s (%s), %d restants (min %d)",
				article.Designation, article.Code, article.CurrentStock, article.MinStock),
		})
	}

	if days := article.DaysUntilExpiry(now); days != nil && *days > 0 && *days <= expiryWindowDays {
		result.ExpiringSoon++
		severity := repository.SeverityMedium
		if *days <= expiryUrgentDays {
			severity = repository.SeverityHigh
		}
		alerts = append(alerts, &repository.Alert{
			ArticleID: &articleID,
			StoreID:   article.StoreID,
			Kind:      repository.KindExpirySoon,
			Severity:  severity,
			Message: fmt.Sprintf("Peremption proche: %s (%s), expire dans %d jours",
				article.Designation, article.Code, *days),
		})
	}

	return alerts
}

func (s *Scanner) publishAlert(ctx context.Context, companyID string, alert *repository.Alert) {
	if s.publisher == nil {
		return
	}
	event := messaging.StockAlertGeneratedEvent{
		AlertID:   alert.ID,
		CompanyID: companyID,
		StoreID:   alert.StoreID,
		ArticleID: alert.ArticleID,
		Kind:      alert.Kind,
		Severity:  alert.Severity,
		Message:   alert.Message,
	}
	if err := s.publisher.Publish(ctx, messaging.EventStockAlertGenerated, event); err != nil {
		s.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert event")
	}
}

// ScanAll scans every store. Store failures are logged, the last one is
// returned so schedulers can surface it.
func (s *Scanner) ScanAll(ctx context.Context) (map[string]*ScanResult, error) {
	stores, err := s.storeRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*ScanResult, len(stores))
	var lastErr error
	for _, store := range stores {
		result, err := s.ScanStore(ctx, store.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("store_id", store.ID).Msg("store scan failed")
			lastErr = err
			continue
		}
		results[store.ID] = result
	}
	return results, lastErr
}
