// Package analytics aggregates review history into study statistics, daily
// streaks and calendar heatmaps.
//
// Calendar days are evaluated in a configured location. A review belongs to
// the local date on which it happened, so the same history can produce
// different buckets for different time zones.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// DateLayout is the format of bucket and range dates.
const DateLayout = "2006-01-02"

// Timeframe selects the length of a heatmap.
type Timeframe string

const (
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

// Days returns the number of buckets for the timeframe, or 0 if unknown.
func (t Timeframe) Days() int {
	switch t {
	case TimeframeWeek:
		return 7
	case TimeframeMonth:
		return 30
	case TimeframeYear:
		return 365
	default:
		return 0
	}
}

// ParseTimeframe parses week, month or year, case-insensitively.
func ParseTimeframe(s string) (Timeframe, error) {
	t := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if t.Days() == 0 {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTimeframe, s)
	}
	return t, nil
}

// Stats summarizes a deck, or all decks, at a reference time.
type Stats struct {
	TotalCards    int `json:"total_cards"`
	NewCards      int `json:"new_cards"`
	LearningCards int `json:"learning_cards"`
	ReviewCards   int `json:"review_cards"`
	DueToday      int `json:"due_today"`
	ReviewedToday int `json:"reviewed_today"`
	Streak        int `json:"streak"`
}

// Bucket is the number of reviews on one local date.
type Bucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Heatmap is a fixed-length run of daily buckets ending today.
type Heatmap struct {
	Timeframe    Timeframe `json:"timeframe"`
	Buckets      []Bucket  `json:"buckets"`
	MaxCount     int       `json:"max_count"`
	TotalReviews int       `json:"total_reviews"`
	Streak       int       `json:"streak"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
}

// startOfDay returns local midnight of t's date in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// streakCounter folds review times, newest first, into a day streak.
type streakCounter struct {
	loc   *time.Location
	today time.Time
	last  time.Time
	count int
	done  bool
}

func newStreakCounter(now time.Time, loc *time.Location) *streakCounter {
	return &streakCounter{loc: loc, today: startOfDay(now, loc)}
}

// add consumes one review time. It reports false once the streak is settled
// and further times cannot change it.
func (c *streakCounter) add(t time.Time) bool {
	if c.done {
		return false
	}
	day := startOfDay(t, c.loc)
	switch {
	case day.After(c.today):
		// stamped after now
		return true
	case c.count == 0:
		if !day.Equal(c.today) && !day.Equal(c.today.AddDate(0, 0, -1)) {
			c.done = true
			return false
		}
		c.last = day
		c.count = 1
		return true
	case day.Equal(c.last):
		return true
	case day.Equal(c.last.AddDate(0, 0, -1)):
		c.last = day
		c.count++
		return true
	default:
		c.done = true
		return false
	}
}

// Streak counts consecutive active days in times, which must be ordered
// newest first. The run must reach today or yesterday to count.
func Streak(times []time.Time, now time.Time, loc *time.Location) int {
	c := newStreakCounter(now, loc)
	for _, t := range times {
		if !c.add(t) {
			break
		}
	}
	return c.count
}

// buildHeatmap buckets times into days local days ending at now's date.
func buildHeatmap(tf Timeframe, times []time.Time, now time.Time, loc *time.Location) *Heatmap {
	days := tf.Days()
	today := startOfDay(now, loc)
	start := today.AddDate(0, 0, -(days - 1))

	h := &Heatmap{
		Timeframe: tf,
		Buckets:   make([]Bucket, days),
		StartDate: start.Format(DateLayout),
		EndDate:   today.Format(DateLayout),
	}
	index := make(map[string]int, days)
	for i := range h.Buckets {
		date := start.AddDate(0, 0, i).Format(DateLayout)
		h.Buckets[i].Date = date
		index[date] = i
	}

	for _, t := range times {
		i, ok := index[t.In(loc).Format(DateLayout)]
		if !ok {
			continue
		}
		h.Buckets[i].Count++
		h.TotalReviews++
		if h.Buckets[i].Count > h.MaxCount {
			h.MaxCount = h.Buckets[i].Count
		}
	}
	return h
}
