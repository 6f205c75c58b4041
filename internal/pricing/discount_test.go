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

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	sameDayMorning := time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  bool
	}{
		{"no bounds", nil, nil, true},
		{"open start, future end", nil, &tomorrow, true},
		{"past start, open end", &yesterday, nil, true},
		{"inside window", &yesterday, &tomorrow, true},
		{"starts tomorrow", &tomorrow, nil, false},
		{"ended yesterday", nil, &yesterday, false},
		{"starts same day earlier hour", &sameDayMorning, nil, true},
		{"ends same day earlier hour", nil, &sameDayMorning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &domain.Discount{ID: uuid.New(), Percentage: 10, StartDate: tt.start, EndDate: tt.end}
			if got := IsActive(d, now); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBestActive(t *testing.T) {
	now := time.Now()
	expired := now.AddDate(0, 0, -5)

	t.Run("highest active percentage wins", func(t *testing.T) {
		product := testProduct("100",
			domain.Discount{ID: uuid.New(), Percentage: 5},
			domain.Discount{ID: uuid.New(), Percentage: 20},
			domain.Discount{ID: uuid.New(), Percentage: 10},
		)

		best := BestActive(product, now)
		if best == nil || best.Percentage != 20 {
			t.Fatalf("expected 20%% discount, got %+v", best)
		}
	})

	t.Run("expired discounts are skipped", func(t *testing.T) {
		product := testProduct("100",
			domain.Discount{ID: uuid.New(), Percentage: 50, EndDate: &expired},
			domain.Discount{ID: uuid.New(), Percentage: 10},
		)

		best := BestActive(product, now)
		if best == nil || best.Percentage != 10 {
			t.Fatalf("expected the active 10%% discount, got %+v", best)
		}
	})

	t.Run("no active discounts yields nil", func(t *testing.T) {
		product := testProduct("100",
			domain.Discount{ID: uuid.New(), Percentage: 50, EndDate: &expired},
		)

		if best := BestActive(product, now); best != nil {
			t.Fatalf("expected nil, got %+v", best)
		}
	})

	t.Run("ties break on smallest id regardless of order", func(t *testing.T) {
		a := domain.Discount{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Percentage: 15}
		b := domain.Discount{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Percentage: 15}

		forward := testProduct("100", a, b)
		reverse := testProduct("100", b, a)

		bestForward := BestActive(forward, now)
		bestReverse := BestActive(reverse, now)

		if bestForward == nil || bestReverse == nil {
			t.Fatal("expected a discount in both orders")
		}
		if bestForward.ID != a.ID || bestReverse.ID != a.ID {
			t.Errorf("tie-break is order dependent: forward=%s reverse=%s", bestForward.ID, bestReverse.ID)
		}
	})
}

func TestResolveSelectedDiscount(t *testing.T) {
	now := time.Now()
	expired := now.AddDate(0, 0, -3)

	active := domain.Discount{ID: uuid.New(), Percentage: 10}
	inactive := domain.Discount{ID: uuid.New(), Percentage: 50, EndDate: &expired}
	product := testProduct("100", active, inactive)

	t.Run("nil selector with autoPick resolves best active", func(t *testing.T) {
		selected, err := ResolveSelectedDiscount(product, nil, true, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected == nil || selected.ID != active.ID {
			t.Errorf("expected best active discount, got %+v", selected)
		}
	})

	t.Run("nil selector without autoPick resolves nothing", func(t *testing.T) {
		selected, err := ResolveSelectedDiscount(product, nil, false, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected != nil {
			t.Errorf("expected nil, got %+v", selected)
		}
	})

	t.Run("explicit none always resolves nothing", func(t *testing.T) {
		none := NoDiscount
		for _, autoPick := range []bool{true, false} {
			selected, err := ResolveSelectedDiscount(product, &none, autoPick, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if selected != nil {
				t.Errorf("autoPick=%v: expected nil, got %+v", autoPick, selected)
			}
		}
	})

	t.Run("valid id resolves that discount", func(t *testing.T) {
		selected, err := ResolveSelectedDiscount(product, &active.ID, false, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected == nil || selected.ID != active.ID {
			t.Errorf("expected the selected discount, got %+v", selected)
		}
	})

	t.Run("inactive id is rejected", func(t *testing.T) {
		if _, err := ResolveSelectedDiscount(product, &inactive.ID, false, now); err != ErrInvalidDiscount {
			t.Errorf("expected ErrInvalidDiscount, got %v", err)
		}
	})

	t.Run("unknown id is rejected", func(t *testing.T) {
		unknown := uuid.New()
		if _, err := ResolveSelectedDiscount(product, &unknown, true, now); err != ErrInvalidDiscount {
			t.Errorf("expected ErrInvalidDiscount, got %v", err)
		}
	})
}

func TestFindDiscount_IgnoresActivity(t *testing.T) {
	now := time.Now()
	expired := now.AddDate(0, 0, -3)
	d := domain.Discount{ID: uuid.New(), Percentage: 30, EndDate: &expired}
	product := testProduct("100", d)

	if found := FindDiscount(product, d.ID); found == nil || found.ID != d.ID {
		t.Errorf("expected to find the expired discount, got %+v", found)
	}
	if found := FindDiscount(product, uuid.New()); found != nil {
		t.Errorf("expected nil for unknown id, got %+v", found)
	}
}

func TestProperty_BestActiveIsMaximal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("no active discount has a higher percentage than the pick", prop.ForAll(
		func(percentages []float64) bool {
			now := time.Now()

			discounts := make([]domain.Discount, 0, len(percentages))
			for _, pct := range percentages {
				discounts = append(discounts, domain.Discount{ID: uuid.New(), Percentage: pct})
			}
			product := &domain.Product{ID: uuid.New(), Price: decimal.NewFromInt(100)}
			product.SetDiscounts(discounts)

			best := BestActive(product, now)
			if len(percentages) == 0 {
				return best == nil
			}
			if best == nil {
				return false
			}
			for _, d := range product.Discounts {
				if d.Percentage > best.Percentage {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 100)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
