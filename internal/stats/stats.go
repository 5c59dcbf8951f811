package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/foodian-app/foodian/internal/inventory"
	"github.com/foodian-app/foodian/internal/model"
)

const (
	DefaultDays   = 11
	MaxDays       = 90
	DefaultWindow = 5
)

// CachePrefix is the key prefix of every cached statistics response for a family.
func CachePrefix(familyID int64) string {
	return fmt.Sprintf("stats:%d:", familyID)
}

type Summary struct {
	Added       float64 `json:"added"`
	Consumed    float64 `json:"consumed"`
	Discarded   float64 `json:"discarded"`
	DiscardRate float64 `json:"discardRate"`
}

// Summarize totals event quantities by kind.
func Summarize(events []model.InventoryEvent) Summary {
	var s Summary
	for _, e := range events {
		switch e.Kind {
		case model.EventAdded:
			s.Added += e.Qty
		case model.EventConsumed:
			s.Consumed += e.Qty
		case model.EventDiscarded:
			s.Discarded += e.Qty
		}
	}
	s.DiscardRate = rate(s.Discarded, s.Consumed+s.Discarded)
	return s
}

func rate(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

type Point struct {
	Date      string  `json:"date"`
	Consumed  float64 `json:"consumed"`
	Discarded float64 `json:"discarded"`
}

// Timeline buckets consumed and discarded quantities per KST calendar day for
// the last days days ending today, oldest first. Days without events are zero.
func Timeline(events []model.InventoryEvent, days int, now time.Time) []Point {
	if days <= 0 {
		return []Point{}
	}
	y, m, d := now.In(inventory.KST).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, inventory.KST)

	points := make([]Point, days)
	index := make(map[string]int, days)
	for i := range points {
		date := today.AddDate(0, 0, i-days+1).Format("2006-01-02")
		points[i].Date = date
		index[date] = i
	}

	for _, e := range events {
		i, ok := index[e.At.In(inventory.KST).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch e.Kind {
		case model.EventConsumed:
			points[i].Consumed += e.Qty
		case model.EventDiscarded:
			points[i].Discarded += e.Qty
		}
	}
	return points
}

// WindowStart is the first instant covered by a Timeline of the given length.
func WindowStart(days int, now time.Time) time.Time {
	y, m, d := now.In(inventory.KST).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, inventory.KST).AddDate(0, 0, 1-days)
}

// MovingAverage returns the trailing mean of each value over window entries.
// The first entries average over what is available.
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Normalize maps v from [lo, hi] onto [0, 1]. A flat range maps to 0.
func Normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

type Conversion struct {
	AlertsCount       int     `json:"alertsCount"`
	AlertedQty        float64 `json:"alertedQty"`
	ConsumedInTimeQty float64 `json:"consumedInTimeQty"`
	Conversion        float64 `json:"conversion"`
	SavedEstimate     int     `json:"savedEstimate"`
}

// ComputeConversion measures how much alerted food was eaten before it expired.
// Consumption counts when it happened after the alert and on or before the
// expiry date. SavedEstimate applies the discard rate of items that were never
// alerted to the quantity eaten in time.
func ComputeConversion(alerts []model.ExpiryAlert, events []model.InventoryEvent) Conversion {
	byItem := make(map[string]model.ExpiryAlert, len(alerts))
	var c Conversion
	for _, a := range alerts {
		if _, dup := byItem[a.ItemID]; dup {
			continue
		}
		byItem[a.ItemID] = a
		c.AlertsCount++
		c.AlertedQty += a.Qty
	}

	var plain []model.InventoryEvent
	for _, e := range events {
		a, ok := byItem[e.ItemID]
		if !ok {
			if !e.Alerted {
				plain = append(plain, e)
			}
			continue
		}
		if e.Kind != model.EventConsumed || e.At.Before(a.AlertedAt) {
			continue
		}
		if e.At.In(inventory.KST).Format("2006-01-02") <= a.ExpireDate {
			c.ConsumedInTimeQty += e.Qty
		}
	}

	c.Conversion = rate(c.ConsumedInTimeQty, c.AlertedQty)
	c.SavedEstimate = int(math.Round(c.ConsumedInTimeQty * Summarize(plain).DiscardRate))
	return c
}

// FormatPercent renders a 0..1 ratio as a whole percentage.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

// ChartPoint holds one day of the chart scaled onto [0, 1].
type ChartPoint struct {
	Consumed  float64 `json:"consumed"`
	Discarded float64 `json:"discarded"`
	Average   float64 `json:"average"`
}

type Report struct {
	Storage        string       `json:"storage"`
	Days           int          `json:"days"`
	Summary        Summary      `json:"summary"`
	Timeline       []Point      `json:"timeline"`
	MovingAverage  []float64    `json:"movingAverage"`
	Chart          []ChartPoint `json:"chart"`
	Conversion     Conversion   `json:"conversion"`
	DiscardRatePct string       `json:"discardRatePct"`
	ConversionPct  string       `json:"conversionPct"`
	SavedLabel     string       `json:"savedLabel"`
}

// Build assembles the statistics screen from events and alerts already
// limited to the reporting window.
func Build(storage string, days int, events []model.InventoryEvent, alerts []model.ExpiryAlert, now time.Time) Report {
	timeline := Timeline(events, days, now)
	consumed := make([]float64, len(timeline))
	var maxY float64
	for i, p := range timeline {
		consumed[i] = p.Consumed
		maxY = max(maxY, p.Consumed, p.Discarded)
	}
	avg := MovingAverage(consumed, DefaultWindow)

	chart := make([]ChartPoint, len(timeline))
	for i, p := range timeline {
		chart[i] = ChartPoint{
			Consumed:  Normalize(p.Consumed, 0, maxY),
			Discarded: Normalize(p.Discarded, 0, maxY),
			Average:   Normalize(avg[i], 0, maxY),
		}
	}

	summary := Summarize(events)
	conv := ComputeConversion(alerts, events)
	return Report{
		Storage:        storage,
		Days:           days,
		Summary:        summary,
		Timeline:       timeline,
		MovingAverage:  avg,
		Chart:          chart,
		Conversion:     conv,
		DiscardRatePct: FormatPercent(summary.DiscardRate),
		ConversionPct:  FormatPercent(conv.Conversion),
		SavedLabel:     humanize.Comma(int64(conv.SavedEstimate)) + "개",
	}
}
