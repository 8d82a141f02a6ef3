package service

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/catalog/repository"
)

// DefaultVATRate is the Tunisian standard VAT rate
var DefaultVATRate = decimal.RequireFromString("0.19")

var oneHundred = decimal.NewFromInt(100)

// Valuation is the stock value of a set of articles at purchase and sale
// prices
type Valuation struct {
	PurchaseValue decimal.Decimal `json:"valeur_achat_ht"`
	SaleValue     decimal.Decimal `json:"valeur_vente_ht"`
	GrossMargin   decimal.Decimal `json:"marge_brute"`
	MarginRate    decimal.Decimal `json:"taux_marge"`
}

// StockValuation values articles at current stock times price. The margin
// rate is the gross margin relative to the purchase value, in percent.
func StockValuation(articles []*repository.Article) *Valuation {
	purchase := decimal.Zero
	sale := decimal.Zero
	for _, a := range articles {
		stock := decimal.NewFromInt(int64(a.CurrentStock))
		purchase = purchase.Add(stock.Mul(a.PurchasePrice))
		sale = sale.Add(stock.Mul(a.SalePrice))
	}

	margin := sale.Sub(purchase)
	rate := decimal.Zero
	if purchase.IsPositive() {
		rate = margin.Div(purchase).Mul(oneHundred)
	}

	return &Valuation{
		PurchaseValue: purchase.Round(3),
		SaleValue:     sale.Round(3),
		GrossMargin:   margin.Round(3),
		MarginRate:    rate.Round(2),
	}
}

// VATBreakdown splits an amount into net, tax and gross
type VATBreakdown struct {
	Net   decimal.Decimal `json:"montant_ht"`
	Tax   decimal.Decimal `json:"tva"`
	Gross decimal.Decimal `json:"montant_ttc"`
	Rate  decimal.Decimal `json:"taux_tva"`
}

// VAT applies a tax rate to a net amount
func VAT(net, rate decimal.Decimal) *VATBreakdown {
	tax := net.Mul(rate)
	return &VATBreakdown{
		Net:   net.Round(3),
		Tax:   tax.Round(3),
		Gross: net.Add(tax).Round(3),
		Rate:  rate,
	}
}

// MarginBreakdown is the margin of one article. The margin rate is relative
// to the purchase price, the markup rate to the sale price.
type MarginBreakdown struct {
	GrossMargin decimal.Decimal `json:"marge_brute"`
	MarginRate  decimal.Decimal `json:"taux_marge"`
	MarkupRate  decimal.Decimal `json:"taux_marque"`
}

// Margin computes margin and markup rates for a purchase/sale price pair
func Margin(purchasePrice, salePrice decimal.Decimal) *MarginBreakdown {
	margin := salePrice.Sub(purchasePrice)

	marginRate := decimal.Zero
	if purchasePrice.IsPositive() {
		marginRate = margin.Div(purchasePrice).Mul(oneHundred)
	}
	markupRate := decimal.Zero
	if salePrice.IsPositive() {
		markupRate = margin.Div(salePrice).Mul(oneHundred)
	}

	return &MarginBreakdown{
		GrossMargin: margin.Round(3),
		MarginRate:  marginRate.Round(2),
		MarkupRate:  markupRate.Round(2),
	}
}

// Rotation is the ratio of units sold over a period to the average stock
// level, rounded to 2 decimals
func Rotation(unitsSold float64, averageStock float64) float64 {
	if averageStock == 0 {
		return 0
	}
	return math.Round(unitsSold/averageStock*100) / 100
}

// CoverageDays estimates how many days the current stock lasts at the given
// average daily sales. A dormant article reports 999.
func CoverageDays(currentStock int, avgDailySales float64) int {
	if avgDailySales == 0 {
		return 999
	}
	return int(float64(currentStock) / avgDailySales)
}

// EOQ is the economic order quantity for an annual demand, a fixed cost per
// order and a holding cost per unit per year
func EOQ(annualDemand, orderCost, holdingCost float64) int {
	if holdingCost == 0 {
		return 0
	}
	return int(math.Sqrt(2 * annualDemand * orderCost / holdingCost))
}
