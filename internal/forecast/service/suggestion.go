package service

import (
	"context"
	"math"
	"sort"
	"time"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/internal/forecast/repository"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// Suggestion priorities
const (
	PriorityHigh   = "HIGH"
	PriorityNormal = "NORMAL"
)

// suggestionFreshness is how recent a forecast must be to drive a
// purchase suggestion
const suggestionFreshness = 24 * time.Hour

// PurchaseSuggestion recommends reordering one article
type PurchaseSuggestion struct {
	ArticleID       string  `json:"article_id"`
	Code            string  `json:"code"`
	Designation     string  `json:"designation"`
	CurrentStock    int     `json:"stock_actuel"`
	PredictedDemand float64 `json:"demande_prevue"`
	QuantityToOrder int     `json:"quantite_a_commander"`
	Confidence      float64 `json:"confiance"`
	Priority        string  `json:"priorite"`
}

// Suggester turns fresh forecasts into purchase suggestions
type Suggester struct {
	forecastRepo *repository.ForecastRepository
	articleRepo  *catalogrepo.ArticleRepository
	logger       *logger.Logger
}

// NewSuggester creates a new purchase suggester
func NewSuggester(forecastRepo *repository.ForecastRepository, articleRepo *catalogrepo.ArticleRepository, log *logger.Logger) *Suggester {
	return &Suggester{forecastRepo: forecastRepo, articleRepo: articleRepo, logger: log}
}

// Suggestions lists the articles of a store worth reordering, most urgent
// first. Only forecasts computed within the last day count.
func (s *Suggester) Suggestions(ctx context.Context, storeID string) ([]*PurchaseSuggestion, error) {
	cutoff := time.Now().Add(-suggestionFreshness)
	forecasts, err := s.forecastRepo.ListComputedSince(ctx, storeID, cutoff)
	if err != nil {
		return nil, err
	}

	suggestions := make([]*PurchaseSuggestion, 0)
	for _, f := range forecasts {
		article, err := s.articleRepo.GetByID(ctx, f.ArticleID)
		if err != nil {
			s.logger.Error().Err(err).Str("article_id", f.ArticleID).Msg("failed to load article for suggestion")
			continue
		}
		if !article.IsActive {
			continue
		}

		needed := f.PredictedQuantity + float64(article.SafetyStock) - float64(article.CurrentStock)
		if needed <= 0 {
			continue
		}

		priority := PriorityNormal
		if article.CurrentStock <= article.MinStock {
			priority = PriorityHigh
		}

		suggestions = append(suggestions, &PurchaseSuggestion{
			ArticleID:       article.ID,
			Code:            article.Code,
			Designation:     article.Designation,
			CurrentStock:    article.CurrentStock,
			PredictedDemand: math.Round(f.PredictedQuantity),
			QuantityToOrder: int(math.Round(needed)),
			Confidence:      f.Confidence,
			Priority:        priority,
		})
	}

	// Urgent articles first, then the emptiest shelves
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Priority != suggestions[j].Priority {
			return suggestions[i].Priority == PriorityHigh
		}
		return suggestions[i].CurrentStock < suggestions[j].CurrentStock
	})
	return suggestions, nil
}
