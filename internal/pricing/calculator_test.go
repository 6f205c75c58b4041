package pricing

import (
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func testProduct(price string, discounts ...domain.Discount) *domain.Product {
	p := &domain.Product{
		ID:    uuid.New(),
		Name:  "Test Product",
		Price: decimal.RequireFromString(price),
	}
	p.SetDiscounts(discounts)
	return p
}

func customer() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Roles: []string{domain.RoleUser},
	}
}

func employee() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Roles: []string{domain.RoleUser, domain.RoleEmployee},
	}
}

func TestPrice_ProductDiscountOnly(t *testing.T) {
	now := time.Now()
	product := testProduct("499.99", domain.Discount{
		ID:         uuid.New(),
		Percentage: 10,
	})

	quote := Price(product, &product.Discounts[0], customer(), now)

	if quote.TotalPct != 10 {
		t.Errorf("expected total 10%%, got %v", quote.TotalPct)
	}
	want := decimal.RequireFromString("449.991")
	if !quote.FinalPrice.Equal(want) {
		t.Errorf("expected final price %s, got %s", want, quote.FinalPrice)
	}
}

func TestPrice_AllSourcesStackAdditively(t *testing.T) {
	now := time.Now()
	product := testProduct("100", domain.Discount{
		ID:         uuid.New(),
		Percentage: 5,
	})

	user := employee()
	user.DiscountPct = 10

	quote := Price(product, &product.Discounts[0], user, now)

	if quote.ProductPct != 5 || quote.UserPct != 10 || quote.EmployeePct != 15 {
		t.Fatalf("unexpected breakdown: product=%v user=%v employee=%v",
			quote.ProductPct, quote.UserPct, quote.EmployeePct)
	}
	if quote.TotalPct != 30 {
		t.Errorf("expected total 30%%, got %v", quote.TotalPct)
	}
	want := decimal.RequireFromString("70")
	if !quote.FinalPrice.Equal(want) {
		t.Errorf("expected final price %s, got %s", want, quote.FinalPrice)
	}
}

func TestPrice_CapAtOneHundred(t *testing.T) {
	now := time.Now()
	product := testProduct("59.99", domain.Discount{
		ID:         uuid.New(),
		Percentage: 90,
	})

	user := employee()
	user.DiscountPct = 50

	quote := Price(product, &product.Discounts[0], user, now)

	if quote.TotalPct != 100 {
		t.Errorf("expected capped total 100%%, got %v", quote.TotalPct)
	}
	if !quote.FinalPrice.IsZero() {
		t.Errorf("expected zero final price, got %s", quote.FinalPrice)
	}
}

func TestPrice_ExpiredSelectionContributesNothing(t *testing.T) {
	now := time.Now()
	past := now.AddDate(0, 0, -10)
	expiredEnd := now.AddDate(0, 0, -2)

	product := testProduct("80", domain.Discount{
		ID:         uuid.New(),
		Percentage: 25,
		StartDate:  &past,
		EndDate:    &expiredEnd,
	})

	quote := Price(product, &product.Discounts[0], customer(), now)

	if quote.ProductPct != 0 {
		t.Errorf("expired discount should contribute 0%%, got %v", quote.ProductPct)
	}
	if !quote.FinalPrice.Equal(quote.BasePrice) {
		t.Errorf("expected base price %s, got %s", quote.BasePrice, quote.FinalPrice)
	}
}

func TestPrice_UserDiscountBounds(t *testing.T) {
	now := time.Now()
	product := testProduct("100")

	tomorrow := now.AddDate(0, 0, 1)
	yesterday := now.AddDate(0, 0, -1)

	tests := []struct {
		name    string
		pct     float64
		start   *time.Time
		end     *time.Time
		wantPct float64
	}{
		{"no bounds is always active", 10, nil, nil, 10},
		{"starts tomorrow is inactive", 10, &tomorrow, nil, 0},
		{"ended yesterday is inactive", 10, nil, &yesterday, 0},
		{"covers today is active", 10, &yesterday, &tomorrow, 10},
		{"starts today is active", 10, &now, nil, 10},
		{"ends today is active", 10, nil, &now, 10},
		{"zero percentage is inactive", 0, &yesterday, &tomorrow, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := customer()
			user.DiscountPct = tt.pct
			user.DiscountStartDate = tt.start
			user.DiscountEndDate = tt.end

			quote := Price(product, nil, user, now)
			if quote.UserPct != tt.wantPct {
				t.Errorf("expected user pct %v, got %v", tt.wantPct, quote.UserPct)
			}
		})
	}
}

func TestProperty_TotalDiscountNeverExceedsCap(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total percentage stays within [0, 100] and final price within [0, base]", prop.ForAll(
		func(productPct float64, userPct float64, isEmployee bool, priceCents int) bool {
			now := time.Now()
			base := decimal.NewFromInt(int64(priceCents)).Div(decimal.NewFromInt(100))

			product := &domain.Product{ID: uuid.New(), Price: base}
			product.SetDiscounts([]domain.Discount{{
				ID:         uuid.New(),
				Percentage: productPct,
			}})

			user := customer()
			user.DiscountPct = userPct
			if isEmployee {
				user.Roles = append(user.Roles, domain.RoleEmployee)
			}

			quote := Price(product, &product.Discounts[0], user, now)

			if quote.TotalPct < 0 || quote.TotalPct > 100 {
				return false
			}
			if quote.FinalPrice.IsNegative() {
				return false
			}
			return quote.FinalPrice.LessThanOrEqual(base)
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Bool(),
		gen.IntRange(1, 10_000_00),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
