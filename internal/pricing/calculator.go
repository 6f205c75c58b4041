package pricing

import (
	"time"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// EmployeeDiscountPercentage is granted unconditionally to users holding the
// employee role. It has no date bounds.
const EmployeeDiscountPercentage = 15.0

var oneHundred = decimal.NewFromInt(100)

// Quote is the price breakdown for one cart line, recomputed on every read
// so expired discounts stop applying without any explicit update.
type Quote struct {
	BasePrice   decimal.Decimal
	FinalPrice  decimal.Decimal
	ProductPct  float64
	UserPct     float64
	EmployeePct float64
	TotalPct    float64
}

// Price combines the selected product discount with the user's personal and
// employee discounts into one capped percentage and derives the final unit
// price. Percentages stack additively, never multiplicatively, and the sum
// is capped at 100.
func Price(product *domain.Product, selected *domain.Discount, user *domain.User, on time.Time) Quote {
	q := Quote{BasePrice: product.Price}

	if selected != nil && IsActive(selected, on) {
		q.ProductPct = selected.Percentage
	}
	q.UserPct = activeUserDiscountPercentage(user, on)
	if user.HasRole(domain.RoleEmployee) {
		q.EmployeePct = EmployeeDiscountPercentage
	}

	q.TotalPct = q.ProductPct + q.UserPct + q.EmployeePct
	if q.TotalPct > 100 {
		q.TotalPct = 100
	}

	multiplier := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(q.TotalPct).Div(oneHundred))
	q.FinalPrice = q.BasePrice.Mul(multiplier)
	return q
}

// activeUserDiscountPercentage returns the user's personal discount when it
// is positive and its own date bounds include the reference date, else 0.
func activeUserDiscountPercentage(user *domain.User, on time.Time) float64 {
	if user.DiscountPct <= 0 {
		return 0
	}
	day := truncateToDay(on)
	if user.DiscountStartDate != nil && truncateToDay(*user.DiscountStartDate).After(day) {
		return 0
	}
	if user.DiscountEndDate != nil && truncateToDay(*user.DiscountEndDate).Before(day) {
		return 0
	}
	return user.DiscountPct
}
