package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	forecastrepo "github.com/stockflow/stockflow-backend/internal/forecast/repository"
	"github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

// EventPublisher publishes domain events. Nil-safe wiring is the caller's
// job; the worker runs without a publisher in some test setups.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// StockService records stock movements and runs inter-store transfers.
// Every stock change goes through a transaction that updates the article
// level and writes the movement line together.
type StockService struct {
	db           *database.DB
	articleRepo  *catalogrepo.ArticleRepository
	movementRepo *repository.MovementRepository
	transferRepo *repository.TransferRepository
	saleRepo     *forecastrepo.SaleRepository
	publisher    EventPublisher
	logger       *logger.Logger
}

// NewStockService creates a new stock service
func NewStockService(
	db *database.DB,
	articleRepo *catalogrepo.ArticleRepository,
	movementRepo *repository.MovementRepository,
	transferRepo *repository.TransferRepository,
	saleRepo *forecastrepo.SaleRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *StockService {
	return &StockService{
		db:           db,
		articleRepo:  articleRepo,
		movementRepo: movementRepo,
		transferRepo: transferRepo,
		saleRepo:     saleRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// MovementInput describes a stock movement to record
type MovementInput struct {
	ArticleID    string
	SupplierID   *string
	Type         string
	Quantity     int
	UnitPrice    *decimal.Decimal
	Reason       *string
	ReferenceDoc *string
}

// MovementResult is the recorded movement plus the resulting stock level
type MovementResult struct {
	Movement *repository.Movement `json:"movement"`
	NewStock int                  `json:"new_stock"`
}

// RecordMovement applies a movement to an article's stock level. Entree and
// retour add, sortie removes down to zero, ajustement sets the level.
func (s *StockService) RecordMovement(ctx context.Context, input MovementInput) (*MovementResult, error) {
	if input.Quantity < 0 {
		return nil, errors.BadRequest("quantity must not be negative")
	}
	switch input.Type {
	case repository.MovementEntree, repository.MovementSortie,
		repository.MovementAjustement, repository.MovementRetour:
	default:
		return nil, errors.BadRequest("unknown movement type: " + input.Type)
	}

	var result MovementResult
	var salePrice *decimal.Decimal
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		article, err := s.articleRepo.LockForUpdate(ctx, tx, input.ArticleID)
		if err != nil {
			return err
		}
		salePrice = &article.SalePrice

		var newStock int
		switch input.Type {
		case repository.MovementEntree, repository.MovementRetour:
			newStock, err = s.articleRepo.ApplyStockDelta(ctx, tx, article.ID, input.Quantity)
		case repository.MovementSortie:
			// Outgoing quantity may exceed the recorded stock when the
			// physical count drifted. The level floors at zero.
			delta := input.Quantity
			if delta > article.CurrentStock {
				delta = article.CurrentStock
			}
			newStock, err = s.articleRepo.ApplyStockDelta(ctx, tx, article.ID, -delta)
		case repository.MovementAjustement:
			newStock, err = s.articleRepo.SetStock(ctx, tx, article.ID, input.Quantity)
		}
		if err != nil {
			return err
		}

		movement := &repository.Movement{
			ArticleID:    article.ID,
			StoreID:      article.StoreID,
			SupplierID:   input.SupplierID,
			MovementType: input.Type,
			Quantity:     input.Quantity,
			UnitPrice:    input.UnitPrice,
			Reason:       input.Reason,
			ReferenceDoc: input.ReferenceDoc,
		}
		if err := s.movementRepo.CreateTx(ctx, tx, movement); err != nil {
			return err
		}

		result.Movement = movement
		result.NewStock = newStock
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordSale(ctx, input, &result, salePrice)
	s.publishMovement(ctx, &result)
	return &result, nil
}

// recordSale mirrors a sortie movement into the demand history the forecast
// engine reads. A failed sale write never undoes a committed movement.
func (s *StockService) recordSale(ctx context.Context, input MovementInput, result *MovementResult, salePrice *decimal.Decimal) {
	if s.saleRepo == nil || input.Type != repository.MovementSortie || input.Quantity == 0 {
		return
	}

	price := input.UnitPrice
	if price == nil {
		price = salePrice
	}
	sale := &forecastrepo.Sale{
		ArticleID: result.Movement.ArticleID,
		StoreID:   result.Movement.StoreID,
		Quantity:  input.Quantity,
		UnitPrice: price,
	}
	if err := s.saleRepo.Create(ctx, sale); err != nil {
		s.logger.Error().Err(err).Str("article_id", sale.ArticleID).Msg("failed to record sale for forecasting")
	}
}

func (s *StockService) publishMovement(ctx context.Context, result *MovementResult) {
	if s.publisher == nil {
		return
	}
	event := messaging.StockMovementRecordedEvent{
		MovementID: result.Movement.ID,
		ArticleID:  result.Movement.ArticleID,
		StoreID:    result.Movement.StoreID,
		Type:       result.Movement.MovementType,
		Quantity:   result.Movement.Quantity,
		NewStock:   result.NewStock,
	}
	if err := s.publisher.Publish(ctx, messaging.EventStockMovementRecorded, event); err != nil {
		s.logger.Error().Err(err).Str("movement_id", result.Movement.ID).Msg("failed to publish movement event")
	}
}

// TransferInput describes an inter-store transfer to create
type TransferInput struct {
	ArticleID   string
	DestStoreID string
	Quantity    int
	Notes       *string
}

// CreateTransfer creates a pending transfer from the article's store to the
// destination store
func (s *StockService) CreateTransfer(ctx context.Context, input TransferInput) (*repository.Transfer, error) {
	if input.Quantity <= 0 {
		return nil, errors.BadRequest("quantity must be positive")
	}

	article, err := s.articleRepo.GetByID(ctx, input.ArticleID)
	if err != nil {
		return nil, err
	}
	if article.StoreID == input.DestStoreID {
		return nil, errors.BadRequest("origin and destination stores must differ")
	}
	if article.CurrentStock < input.Quantity {
		return nil, errors.Conflict(fmt.Sprintf(
			"insufficient stock: %d available, %d requested", article.CurrentStock, input.Quantity))
	}

	transfer := &repository.Transfer{
		ArticleID:     article.ID,
		OriginStoreID: article.StoreID,
		DestStoreID:   input.DestStoreID,
		Quantity:      input.Quantity,
		Notes:         input.Notes,
	}
	if err := s.transferRepo.Create(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// ShipTransfer moves a pending transfer to shipped and removes the quantity
// from the origin store
func (s *StockService) ShipTransfer(ctx context.Context, transferID string) (*repository.Transfer, error) {
	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.transferRepo.UpdateStatusTx(ctx, tx, transfer.ID,
			repository.TransferPending, repository.TransferShipped, "shipped_at"); err != nil {
			return err
		}

		article, err := s.articleRepo.LockForUpdate(ctx, tx, transfer.ArticleID)
		if err != nil {
			return err
		}
		if article.CurrentStock < transfer.Quantity {
			return errors.Conflict(fmt.Sprintf(
				"insufficient stock: %d available, %d requested", article.CurrentStock, transfer.Quantity))
		}
		if _, err := s.articleRepo.ApplyStockDelta(ctx, tx, article.ID, -transfer.Quantity); err != nil {
			return err
		}

		movement := &repository.Movement{
			ArticleID:    article.ID,
			StoreID:      article.StoreID,
			MovementType: repository.MovementSortie,
			Quantity:     transfer.Quantity,
			ReferenceDoc: &transfer.Reference,
		}
		return s.movementRepo.CreateTx(ctx, tx, movement)
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, messaging.EventStockTransferShipped, transfer); err != nil {
			s.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("failed to publish transfer event")
		}
	}
	return s.transferRepo.GetByID(ctx, transferID)
}

// ReceiveTransfer completes a shipped transfer, adding the quantity to the
// matching article of the destination store. Articles match by code.
func (s *StockService) ReceiveTransfer(ctx context.Context, transferID string) (*repository.Transfer, error) {
	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	origin, err := s.articleRepo.GetByID(ctx, transfer.ArticleID)
	if err != nil {
		return nil, err
	}
	dest, err := s.articleRepo.GetByCode(ctx, transfer.DestStoreID, origin.Code)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.BadRequest("article " + origin.Code + " does not exist in the destination store")
		}
		return nil, err
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.transferRepo.UpdateStatusTx(ctx, tx, transfer.ID,
			repository.TransferShipped, repository.TransferReceived, "received_at"); err != nil {
			return err
		}
		if _, err := s.articleRepo.ApplyStockDelta(ctx, tx, dest.ID, transfer.Quantity); err != nil {
			return err
		}

		movement := &repository.Movement{
			ArticleID:    dest.ID,
			StoreID:      dest.StoreID,
			MovementType: repository.MovementEntree,
			Quantity:     transfer.Quantity,
			ReferenceDoc: &transfer.Reference,
		}
		return s.movementRepo.CreateTx(ctx, tx, movement)
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, messaging.EventStockTransferReceived, transfer); err != nil {
			s.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("failed to publish transfer event")
		}
	}
	return s.transferRepo.GetByID(ctx, transferID)
}
