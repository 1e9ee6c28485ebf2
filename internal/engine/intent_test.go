package engine

import (
	"strings"
	"testing"

	"finquery/internal/core"
)

func known(value string) Match {
	return Match{Value: value, Score: ScoreVocabulary, Known: true}
}

func TestResolveIntentPriority(t *testing.T) {
	tests := []struct {
		name     string
		entities Entities
		want     core.Intent
	}{
		{
			name:     "category only",
			entities: Entities{Month: "2025-06", Categories: []Match{known("Food")}},
			want:     core.IntentCategoryTotal,
		},
		{
			name:     "merchant only",
			entities: Entities{Month: "2025-06", Merchants: []Match{known("Safeway")}},
			want:     core.IntentMerchantTotal,
		},
		{
			name:     "source only",
			entities: Entities{Month: "2025-06", Sources: []Match{known("Amex")}},
			want:     core.IntentSourceTotal,
		},
		{
			name:     "month only",
			entities: Entities{Month: "2025-06"},
			want:     core.IntentMonthlySummary,
		},
		{
			name:     "nothing",
			entities: Entities{},
			want:     core.IntentClarification,
		},
		{
			name: "category beats merchant",
			entities: Entities{
				Month:      "2025-06",
				Categories: []Match{known("Food")},
				Merchants:  []Match{known("Safeway")},
			},
			want: core.IntentCategoryTotal,
		},
		{
			name: "merchant beats source",
			entities: Entities{
				Month:     "2025-06",
				Merchants: []Match{known("Safeway")},
				Sources:   []Match{known("Chase")},
			},
			want: core.IntentMerchantTotal,
		},
		{
			name:     "entity without month still classifies",
			entities: Entities{Categories: []Match{known("Food")}},
			want:     core.IntentCategoryTotal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveIntent(tt.entities); got != tt.want {
				t.Errorf("ResolveIntent = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDispatchBindsFilter(t *testing.T) {
	d := NewDispatcher(MonthClarify)

	e := Entities{Month: "2025-06", Categories: []Match{known("Food")}}
	disp, clar := d.Dispatch(core.IntentCategoryTotal, e)
	if clar != nil {
		t.Fatalf("unexpected clarification: %+v", clar)
	}
	want := core.Filter{Month: "2025-06", Category: "Food", Kind: core.Expense}
	if disp.Filter != want {
		t.Errorf("Filter = %+v, want %+v", disp.Filter, want)
	}
	if disp.FuncName != "category_total" {
		t.Errorf("FuncName = %s", disp.FuncName)
	}
	if disp.EntityName != "Food" {
		t.Errorf("EntityName = %s", disp.EntityName)
	}
}

func TestDispatchMissingMonth(t *testing.T) {
	e := Entities{Categories: []Match{known("Food")}}

	t.Run("clarify policy", func(t *testing.T) {
		d := NewDispatcher(MonthClarify)
		disp, clar := d.Dispatch(core.IntentCategoryTotal, e)
		if disp != nil || clar == nil {
			t.Fatalf("disp = %+v, clar = %+v", disp, clar)
		}
		if clar.Missing != "month" {
			t.Errorf("Missing = %s, want month", clar.Missing)
		}
		if !strings.Contains(clar.Question, "YYYY-MM") {
			t.Errorf("Question = %q, should mention the format", clar.Question)
		}
	})

	t.Run("all policy", func(t *testing.T) {
		d := NewDispatcher(MonthAll)
		disp, clar := d.Dispatch(core.IntentCategoryTotal, e)
		if clar != nil {
			t.Fatalf("unexpected clarification: %+v", clar)
		}
		if disp.Filter.Month != "" {
			t.Errorf("Month = %q, want empty for all-time", disp.Filter.Month)
		}
	})

	t.Run("summary always clarifies", func(t *testing.T) {
		d := NewDispatcher(MonthAll)
		_, clar := d.Dispatch(core.IntentMonthlySummary, Entities{})
		if clar == nil || clar.Missing != "month" {
			t.Fatalf("clar = %+v, want missing month", clar)
		}
	})
}

func TestDispatchUnknownMerchant(t *testing.T) {
	d := NewDispatcher(MonthClarify)
	e := Entities{
		Month:     "2025-06",
		Merchants: []Match{{Value: "Joe's Diner", Score: ScoreHeuristic, Known: false}},
	}

	disp, clar := d.Dispatch(core.IntentMerchantTotal, e)
	if disp != nil || clar == nil {
		t.Fatalf("disp = %+v, clar = %+v", disp, clar)
	}
	if clar.Missing != "merchant" {
		t.Errorf("Missing = %s", clar.Missing)
	}
	if !strings.Contains(clar.Question, "Joe's Diner") {
		t.Errorf("Question = %q, should name the unknown merchant", clar.Question)
	}
}

func TestDispatchClarificationIntent(t *testing.T) {
	d := NewDispatcher(MonthClarify)
	disp, clar := d.Dispatch(core.IntentClarification, Entities{})
	if disp != nil || clar == nil {
		t.Fatalf("disp = %+v, clar = %+v", disp, clar)
	}
	if clar.Missing != "intent" {
		t.Errorf("Missing = %s, want intent", clar.Missing)
	}
}

func TestInvalidPolicyFallsBackToClarify(t *testing.T) {
	d := NewDispatcher(MonthPolicy("bogus"))
	_, clar := d.Dispatch(core.IntentCategoryTotal, Entities{Categories: []Match{known("Food")}})
	if clar == nil || clar.Missing != "month" {
		t.Fatalf("clar = %+v, want missing month under default policy", clar)
	}
}
