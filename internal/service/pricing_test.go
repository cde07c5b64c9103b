package service

import (
    "testing"
    "time"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestCalculateCostCents(t *testing.T) {
    cases := []struct {
        name string
        dur  time.Duration
        rate int64
        want int64
    }{
        {"exact one hour", time.Hour, 10000, 10000},
        {"exact two hours", 2 * time.Hour, 10000, 20000},
        {"half hour", 30 * time.Minute, 10000, 5000},
        {"one hour one minute rounds to 1.5h", time.Hour + time.Minute, 10000, 15000},
        {"one hour 29 minutes rounds to 1.5h", time.Hour + 29*time.Minute, 10000, 15000},
        {"one hour 59 minutes rounds to 1.5h", time.Hour + 59*time.Minute, 10000, 15000},
        {"one minute charges half an hour", time.Minute, 10000, 5000},
        {"two and a half hours", 2*time.Hour + 30*time.Minute, 8000, 20000},
        {"zero duration", 0, 10000, 0},
        {"negative interval", -time.Hour, 10000, 0},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got := CalculateCostCents(baseTime, baseTime.Add(tc.dur), tc.rate)
            if got != tc.want {
                t.Errorf("CalculateCostCents(%v @ %d) = %d, want %d", tc.dur, tc.rate, got, tc.want)
            }
        })
    }
}

func TestRefundPercent(t *testing.T) {
    cases := []struct {
        name       string
        untilStart time.Duration
        want       int
    }{
        {"exactly 24h", 24 * time.Hour, 100},
        {"more than 24h", 48 * time.Hour, 100},
        {"just under 24h", 24*time.Hour - time.Minute, 75},
        {"exactly 12h", 12 * time.Hour, 75},
        {"just under 12h", 12*time.Hour - time.Minute, 50},
        {"exactly 6h", 6 * time.Hour, 50},
        {"just under 6h", 6*time.Hour - time.Minute, 25},
        {"exactly 2h", 2 * time.Hour, 25},
        {"just under 2h", 2*time.Hour - time.Minute, 0},
        {"past start", -time.Hour, 0},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := RefundPercent(tc.untilStart); got != tc.want {
                t.Errorf("RefundPercent(%v) = %d, want %d", tc.untilStart, got, tc.want)
            }
        })
    }
}

func TestRefundCents(t *testing.T) {
    cases := []struct {
        total   int64
        percent int
        want    int64
    }{
        {10000, 100, 10000},
        {10000, 75, 7500},
        {10000, 50, 5000},
        {10000, 25, 2500},
        {10000, 0, 0},
        {999, 75, 749}, // truncates, never rounds up
    }
    for _, tc := range cases {
        if got := RefundCents(tc.total, tc.percent); got != tc.want {
            t.Errorf("RefundCents(%d, %d) = %d, want %d", tc.total, tc.percent, got, tc.want)
        }
    }
}

func TestOverlaps(t *testing.T) {
    at := func(h int) time.Time { return baseTime.Add(time.Duration(h) * time.Hour) }
    cases := []struct {
        name                       string
        aStart, aEnd, bStart, bEnd time.Time
        want                       bool
    }{
        {"identical", at(0), at(2), at(0), at(2), true},
        {"contained", at(0), at(4), at(1), at(2), true},
        {"partial left", at(0), at(2), at(1), at(3), true},
        {"partial right", at(1), at(3), at(0), at(2), true},
        {"back to back", at(0), at(2), at(2), at(4), false},
        {"disjoint", at(0), at(1), at(3), at(4), false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
                t.Errorf("Overlaps = %v, want %v", got, tc.want)
            }
            // symmetric
            if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
                t.Errorf("Overlaps (swapped) = %v, want %v", got, tc.want)
            }
        })
    }
}
