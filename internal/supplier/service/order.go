package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	stockrepo "github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/internal/supplier/repository"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// OrderService runs the purchase order lifecycle: draft, confirm, receive,
// cancel. Receiving stock writes entree movements in the same transaction
// that updates the order lines.
type OrderService struct {
	db           *database.DB
	orderRepo    *repository.OrderRepository
	supplierRepo *repository.SupplierRepository
	articleRepo  *catalogrepo.ArticleRepository
	movementRepo *stockrepo.MovementRepository
	logger       *logger.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	db *database.DB,
	orderRepo *repository.OrderRepository,
	supplierRepo *repository.SupplierRepository,
	articleRepo *catalogrepo.ArticleRepository,
	movementRepo *stockrepo.MovementRepository,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		db:           db,
		orderRepo:    orderRepo,
		supplierRepo: supplierRepo,
		articleRepo:  articleRepo,
		movementRepo: movementRepo,
		logger:       log,
	}
}

// OrderLineInput is one article position on a new order
type OrderLineInput struct {
	ArticleID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderInput describes a new purchase order
type OrderInput struct {
	SupplierID string
	StoreID    string
	Lines      []OrderLineInput
	Notes      *string
}

// Create creates a draft order. The total is the sum of line quantity times
// unit price, computed in decimal arithmetic.
func (s *OrderService) Create(ctx context.Context, input OrderInput) (*repository.PurchaseOrder, error) {
	if len(input.Lines) == 0 {
		return nil, errors.BadRequest("order needs at least one line")
	}

	if _, err := s.supplierRepo.GetByID(ctx, input.SupplierID); err != nil {
		return nil, err
	}

	order := &repository.PurchaseOrder{
		SupplierID: input.SupplierID,
		StoreID:    input.StoreID,
		Notes:      input.Notes,
	}

	total := decimal.Zero
	for _, l := range input.Lines {
		if l.Quantity <= 0 {
			return nil, errors.BadRequest("line quantity must be positive")
		}
		if l.UnitPrice.IsNegative() {
			return nil, errors.BadRequest("line unit price must not be negative")
		}
		if _, err := s.articleRepo.GetByID(ctx, l.ArticleID); err != nil {
			return nil, err
		}

		lineTotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		order.Lines = append(order.Lines, &repository.OrderLine{
			ArticleID:       l.ArticleID,
			QuantityOrdered: l.Quantity,
			UnitPrice:       l.UnitPrice,
			LineTotal:       lineTotal,
		})
		total = total.Add(lineTotal)
	}
	order.TotalAmount = total

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.orderRepo.CreateTx(ctx, tx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("reference", order.Reference).
		Str("supplier_id", order.SupplierID).
		Str("total", order.TotalAmount.String()).
		Msg("purchase order created")
	return order, nil
}

// Confirm moves a draft order to CONFIRMED and stamps the order date
func (s *OrderService) Confirm(ctx context.Context, orderID string, expectedDelivery *time.Time) (*repository.PurchaseOrder, error) {
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.orderRepo.ConfirmTx(ctx, tx, orderID, expectedDelivery)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", orderID).Msg("purchase order confirmed")
	return s.orderRepo.GetByID(ctx, orderID)
}

// LineReceipt is one received quantity against an order line
type LineReceipt struct {
	LineID   string
	Quantity int
}

// Receive books received quantities against a confirmed order. Each receipt
// adds stock to the article and writes an entree movement referencing the
// order. Partial receipts leave the order CONFIRMED; once every line is
// complete the order becomes RECEIVED.
func (s *OrderService) Receive(ctx context.Context, orderID string, receipts []LineReceipt) (*repository.PurchaseOrder, error) {
	if len(receipts) == 0 {
		return nil, errors.BadRequest("nothing to receive")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != repository.OrderConfirmed {
		return nil, errors.Conflict("only confirmed orders can receive stock")
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, receipt := range receipts {
			if receipt.Quantity <= 0 {
				return errors.BadRequest("received quantity must be positive")
			}

			line, err := s.orderRepo.GetLineTx(ctx, tx, receipt.LineID)
			if err != nil {
				return err
			}
			if line.OrderID != orderID {
				return errors.BadRequest("line does not belong to this order")
			}
			if receipt.Quantity > line.Remaining() {
				return errors.Conflict(fmt.Sprintf(
					"line %s: receiving %d exceeds remaining %d",
					line.ID, receipt.Quantity, line.Remaining()))
			}

			if err := s.orderRepo.AddLineReceivedTx(ctx, tx, line.ID, receipt.Quantity); err != nil {
				return err
			}

			if _, err := s.articleRepo.LockForUpdate(ctx, tx, line.ArticleID); err != nil {
				return err
			}
			if _, err := s.articleRepo.ApplyStockDelta(ctx, tx, line.ArticleID, receipt.Quantity); err != nil {
				return err
			}

			movement := &stockrepo.Movement{
				ArticleID:    line.ArticleID,
				StoreID:      order.StoreID,
				SupplierID:   &order.SupplierID,
				MovementType: stockrepo.MovementEntree,
				Quantity:     receipt.Quantity,
				UnitPrice:    &line.UnitPrice,
				ReferenceDoc: &order.Reference,
			}
			if err := s.movementRepo.CreateTx(ctx, tx, movement); err != nil {
				return err
			}
		}

		pending, err := s.orderRepo.CountPendingLinesTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if pending == 0 {
			return s.orderRepo.MarkDeliveredTx(ctx, tx, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID).
		Int("receipts", len(receipts)).
		Msg("purchase order receipt booked")
	return s.orderRepo.GetByID(ctx, orderID)
}

// Cancel cancels an order that has not received any stock yet
func (s *OrderService) Cancel(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	for _, line := range order.Lines {
		if line.QuantityReceived > 0 {
			return errors.Conflict("order has received stock and can no longer be cancelled")
		}
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, repository.OrderDraft, repository.OrderCancelled)
		if err == nil {
			return nil
		}
		return s.orderRepo.UpdateStatusTx(ctx, tx, orderID, repository.OrderConfirmed, repository.OrderCancelled)
	})
}
