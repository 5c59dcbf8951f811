package stats

import (
	"math"
	"testing"
	"time"

	"github.com/foodian-app/foodian/internal/model"
)

func kst(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.FixedZone("KST", 9*60*60))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarize(t *testing.T) {
	events := []model.InventoryEvent{
		{Kind: model.EventAdded, Qty: 10},
		{Kind: model.EventAdded, Qty: 2.5},
		{Kind: model.EventConsumed, Qty: 3},
		{Kind: model.EventConsumed, Qty: 4},
		{Kind: model.EventDiscarded, Qty: 1},
	}
	s := Summarize(events)
	if s.Added != 12.5 || s.Consumed != 7 || s.Discarded != 1 {
		t.Errorf("summary = %+v", s)
	}
	if !almostEqual(s.DiscardRate, 1.0/8) {
		t.Errorf("discard rate = %v, want 0.125", s.DiscardRate)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.DiscardRate != 0 {
		t.Errorf("discard rate = %v, want 0", s.DiscardRate)
	}
}

func TestTimeline(t *testing.T) {
	now := kst(2026, 3, 11, 10)
	events := []model.InventoryEvent{
		{Kind: model.EventConsumed, Qty: 2, At: kst(2026, 3, 11, 8)},
		// 23:30 UTC on Mar 10 is Mar 11 in KST.
		{Kind: model.EventConsumed, Qty: 1, At: time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)},
		{Kind: model.EventDiscarded, Qty: 3, At: kst(2026, 3, 1, 12)},
		{Kind: model.EventAdded, Qty: 9, At: kst(2026, 3, 5, 12)},
		{Kind: model.EventConsumed, Qty: 5, At: kst(2026, 2, 28, 12)},
	}

	points := Timeline(events, 11, now)
	if len(points) != 11 {
		t.Fatalf("len = %d, want 11", len(points))
	}
	if points[0].Date != "2026-03-01" || points[10].Date != "2026-03-11" {
		t.Errorf("range = %s..%s", points[0].Date, points[10].Date)
	}
	if points[10].Consumed != 3 {
		t.Errorf("today consumed = %v, want 3", points[10].Consumed)
	}
	if points[0].Discarded != 3 {
		t.Errorf("first day discarded = %v, want 3", points[0].Discarded)
	}
	for i := 1; i < 10; i++ {
		if points[i].Consumed != 0 || points[i].Discarded != 0 {
			t.Errorf("day %s should be empty: %+v", points[i].Date, points[i])
		}
	}
}

func TestWindowStart(t *testing.T) {
	got := WindowStart(11, kst(2026, 3, 11, 10))
	if !got.Equal(kst(2026, 3, 1, 0)) {
		t.Errorf("WindowStart = %v", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8, 10, 12}, 3)
	want := []float64{2, 3, 4, 6, 8, 10}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(MovingAverage(nil, 5)) != 0 {
		t.Error("expected empty result for empty input")
	}
}

func TestNormalize(t *testing.T) {
	if Normalize(5, 0, 10) != 0.5 {
		t.Error("Normalize(5, 0, 10) != 0.5")
	}
	if Normalize(3, 3, 3) != 0 {
		t.Error("flat range should normalize to 0")
	}
}

func TestFormatPercent(t *testing.T) {
	tests := map[float64]string{0: "0%", 0.125: "13%", 1: "100%", 0.004: "0%"}
	for in, want := range tests {
		if got := FormatPercent(in); got != want {
			t.Errorf("FormatPercent(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestComputeConversion(t *testing.T) {
	alertedAt := kst(2026, 3, 2, 9)
	alerts := []model.ExpiryAlert{
		{ItemID: "milk", Qty: 4, ExpireDate: "2026-03-03", AlertedAt: alertedAt},
		{ItemID: "tofu", Qty: 2, ExpireDate: "2026-03-03", AlertedAt: alertedAt},
		{ItemID: "milk", Qty: 99, ExpireDate: "2026-03-03", AlertedAt: alertedAt},
	}
	events := []model.InventoryEvent{
		// eaten after the alert, before expiry
		{ItemID: "milk", Kind: model.EventConsumed, Qty: 3, At: kst(2026, 3, 3, 20), Alerted: true},
		// eaten after expiry
		{ItemID: "milk", Kind: model.EventConsumed, Qty: 1, At: kst(2026, 3, 4, 8), Alerted: true},
		// eaten before the alert went out
		{ItemID: "tofu", Kind: model.EventConsumed, Qty: 1, At: kst(2026, 3, 1, 8)},
		{ItemID: "tofu", Kind: model.EventDiscarded, Qty: 1, At: kst(2026, 3, 4, 8), Alerted: true},
		// never alerted: half of it is wasted
		{ItemID: "egg", Kind: model.EventConsumed, Qty: 5, At: kst(2026, 3, 1, 8)},
		{ItemID: "egg", Kind: model.EventDiscarded, Qty: 5, At: kst(2026, 3, 2, 8)},
	}

	c := ComputeConversion(alerts, events)
	if c.AlertsCount != 2 {
		t.Errorf("alertsCount = %d, want 2", c.AlertsCount)
	}
	if c.AlertedQty != 6 {
		t.Errorf("alertedQty = %v, want 6", c.AlertedQty)
	}
	if c.ConsumedInTimeQty != 3 {
		t.Errorf("consumedInTimeQty = %v, want 3", c.ConsumedInTimeQty)
	}
	if !almostEqual(c.Conversion, 0.5) {
		t.Errorf("conversion = %v, want 0.5", c.Conversion)
	}
	// round(3 * 0.5)
	if c.SavedEstimate != 2 {
		t.Errorf("savedEstimate = %d, want 2", c.SavedEstimate)
	}
}

func TestComputeConversionNoAlerts(t *testing.T) {
	c := ComputeConversion(nil, nil)
	if c.Conversion != 0 || c.SavedEstimate != 0 || c.AlertsCount != 0 {
		t.Errorf("unexpected %+v", c)
	}
}

func TestBuild(t *testing.T) {
	now := kst(2026, 3, 11, 10)
	events := []model.InventoryEvent{
		{Kind: model.EventConsumed, Qty: 4, At: kst(2026, 3, 11, 8)},
		{Kind: model.EventDiscarded, Qty: 1, At: kst(2026, 3, 10, 8)},
	}
	r := Build("ALL", DefaultDays, events, nil, now)

	if len(r.Timeline) != DefaultDays || len(r.MovingAverage) != DefaultDays || len(r.Chart) != DefaultDays {
		t.Fatalf("series lengths = %d/%d/%d", len(r.Timeline), len(r.MovingAverage), len(r.Chart))
	}
	if r.Chart[10].Consumed != 1 {
		t.Errorf("peak should normalize to 1, got %v", r.Chart[10].Consumed)
	}
	if r.DiscardRatePct != "20%" {
		t.Errorf("discardRatePct = %q, want 20%%", r.DiscardRatePct)
	}
	if r.SavedLabel != "0개" {
		t.Errorf("savedLabel = %q", r.SavedLabel)
	}
}
