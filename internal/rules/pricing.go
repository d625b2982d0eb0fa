package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/records"
)

var (
	discountThreshold = decimal.NewFromInt(15)
	assumedCostRatio  = decimal.RequireFromString("0.90")
	minMargin         = decimal.RequireFromString("0.10")
	maxPriceDrift     = decimal.RequireFromString("0.01")
)

const bulkQuantity = 100

// DiscountThreshold (PRC-001) flags discounts above 15% that were not approved.
func DiscountThreshold() Rule {
	return NewRule("PRC-001", "Discount Threshold", CategoryPricing, SeverityCritical,
		func(c *Context) (*Violation, error) {
			o := c.Order
			if o.DiscountPct.GreaterThan(discountThreshold) && o.ApprovalStatus != records.ApprovalApproved {
				return &Violation{
					Message: fmt.Sprintf("Discount %s%% exceeds 15%% threshold without approval (status: %s)",
						o.DiscountPct, o.ApprovalStatus),
					ExpectedValue: records.ApprovalApproved,
					ActualValue:   o.ApprovalStatus,
				}, nil
			}
			return nil, nil
		})
}

// MarginProtection (PRC-002) flags a line whose margin is under 10%. Cost
// data is not available, so cost is assumed to be 90% of the unit price.
func MarginProtection() Rule {
	return NewRule("PRC-002", "Margin Protection", CategoryPricing, SeverityHigh,
		func(c *Context) (*Violation, error) {
			for _, item := range c.Order.LineItems {
				margin := decimal.Zero
				if !item.UnitPrice.IsZero() {
					cost := item.UnitPrice.Mul(assumedCostRatio)
					margin = item.UnitPrice.Sub(cost).Div(item.UnitPrice)
				}
				if margin.LessThan(minMargin) {
					return &Violation{
						Message:       fmt.Sprintf("Low margin detected on product %s: margin %s", item.ProductID, percent(margin)),
						ExpectedValue: ">=10%",
						ActualValue:   percent(margin),
					}, nil
				}
			}
			return nil, nil
		})
}

// PriceConsistency (PRC-003) flags more than 1% relative drift between the
// order total and the primary invoice total.
func PriceConsistency() Rule {
	return NewRule("PRC-003", "Price Consistency", CategoryPricing, SeverityCritical,
		func(c *Context) (*Violation, error) {
			if c.Invoice == nil {
				return nil, nil
			}
			orderTotal := c.Order.TotalAmount
			invoiceTotal := c.Invoice.TotalAmount
			if orderTotal.IsZero() {
				return nil, nil
			}
			drift := orderTotal.Sub(invoiceTotal).Abs().Div(orderTotal)
			if drift.GreaterThan(maxPriceDrift) {
				return &Violation{
					Message: fmt.Sprintf("Price drift of %s between order (%s) and invoice (%s)",
						percent(drift), money(orderTotal), money(invoiceTotal)),
					ExpectedValue: money(orderTotal),
					ActualValue:   money(invoiceTotal),
				}, nil
			}
			return nil, nil
		})
}

// BulkPriceValidation (PRC-004) flags a line of more than 100 units on an
// order with no discount.
func BulkPriceValidation() Rule {
	return NewRule("PRC-004", "Bulk Price Validation", CategoryPricing, SeverityMedium,
		func(c *Context) (*Violation, error) {
			if !c.Order.DiscountPct.IsZero() {
				return nil, nil
			}
			for _, item := range c.Order.LineItems {
				if item.Quantity > bulkQuantity {
					return &Violation{
						Message: fmt.Sprintf("Bulk order (%d units of %s) has no bulk discount applied",
							item.Quantity, item.ProductID),
						ExpectedValue: "discount > 0%",
						ActualValue:   "0%",
					}, nil
				}
			}
			return nil, nil
		})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func percent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
