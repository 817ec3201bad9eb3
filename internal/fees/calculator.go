package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
)

// GatewaySchedule is the configurable gateway fee: a flat component plus a
// percentage of the gross amount.
type GatewaySchedule struct {
	Flat    decimal.Decimal
	Percent decimal.Decimal
}

// Calculator computes platform and gateway fees for one order item. It is
// pure: callers compute a quote once at pricing time and persist it on the
// item so later commission-rate changes cannot drift history.
type Calculator struct {
	schedule GatewaySchedule
}

// Breakdown is the fee quote for one order item.
type Breakdown struct {
	Gross       decimal.Decimal
	PlatformFee decimal.Decimal
	GatewayFee  decimal.Decimal
	Net         decimal.Decimal
}

// NewCalculator builds a calculator from the configured gateway schedule.
func NewCalculator(schedule GatewaySchedule) (*Calculator, error) {
	if schedule.Flat.IsNegative() {
		return nil, fmt.Errorf("gateway flat fee must not be negative")
	}
	if schedule.Percent.IsNegative() || schedule.Percent.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("gateway percent must be between 0 and 1")
	}
	return &Calculator{schedule: schedule}, nil
}

// Quote computes the fee breakdown for a gross sale amount under the vendor's
// business model. Subscription vendors pay no per-sale platform fee; the
// gateway fee always applies. Fees are rounded half-up to the currency minor
// unit and clamped so the net earning never goes negative.
func (c *Calculator) Quote(gross decimal.Decimal, model enums.BusinessModel, commissionRate decimal.Decimal) (Breakdown, error) {
	if !model.IsValid() {
		return Breakdown{}, fmt.Errorf("invalid business model %q", model)
	}
	if gross.IsNegative() {
		return Breakdown{}, errors.New(errors.CodeInvalidAmount, "gross amount must not be negative")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return Breakdown{}, fmt.Errorf("commission rate %s out of range", commissionRate)
	}

	platform := decimal.Zero
	if model == enums.BusinessModelCommission {
		platform = roundMinor(gross.Mul(commissionRate))
	}
	platform = clamp(platform, gross)

	gateway := roundMinor(c.schedule.Flat.Add(gross.Mul(c.schedule.Percent)))
	gateway = clamp(gateway, gross.Sub(platform))

	return Breakdown{
		Gross:       gross,
		PlatformFee: platform,
		GatewayFee:  gateway,
		Net:         gross.Sub(platform).Sub(gateway),
	}, nil
}

// PriceOrderItem computes the item's gross from unit price and quantity and
// persists the quote fields onto the model.
func (c *Calculator) PriceOrderItem(item *models.OrderItem, vendor models.Vendor) error {
	if item == nil {
		return fmt.Errorf("order item required")
	}
	if item.Qty <= 0 {
		return errors.New(errors.CodeValidation, "quantity must be positive")
	}
	gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))).Round(enums.MinorUnits)
	quote, err := c.Quote(gross, vendor.BusinessModel, vendor.CommissionRate)
	if err != nil {
		return err
	}
	item.Gross = quote.Gross
	item.PlatformFee = quote.PlatformFee
	item.GatewayFee = quote.GatewayFee
	item.NetEarning = quote.Net
	return nil
}

// roundMinor rounds half-up to the currency minor unit. Decimal's Round
// rounds half away from zero, which matches round-half-up for the
// non-negative amounts handled here.
func roundMinor(d decimal.Decimal) decimal.Decimal {
	return d.Round(enums.MinorUnits)
}

func clamp(d, max decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(max) {
		return max
	}
	return d
}
