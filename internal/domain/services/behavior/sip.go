package behavior

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"gonum.org/v1/gonum/stat"
)

const (
	sipStreakGapDays = 8
	sipTolerance     = 0.3
)

var canonicalInterval = map[entities.SIPFrequency]float64{
	entities.SIPFrequencyDaily:    1,
	entities.SIPFrequencyWeekly:   7,
	entities.SIPFrequencyBiWeekly: 14,
	entities.SIPFrequencyMonthly:  30,
}

// analyzeSIP expects purchases newest first
func analyzeSIP(purchases []entities.TransactionRecord) entities.SIPMetrics {
	sip := filter(purchases, func(tx entities.TransactionRecord) bool { return tx.SIPContribution })
	if len(sip) == 0 {
		return entities.SIPMetrics{Frequency: entities.SIPFrequencyNone}
	}

	dates := contributionDates(sip)
	intervals := dateIntervals(dates)
	frequency := sipFrequency(intervals)

	values := amounts(sip)
	total := 0.0
	for _, v := range values {
		total += v
	}
	last := sip[0].Timestamp

	return entities.SIPMetrics{
		Active:             true,
		Consistency:        sipConsistency(intervals, frequency),
		AvgAmount:          stat.Mean(values, nil),
		Frequency:          frequency,
		Streak:             sipStreak(dates),
		TotalContributions: len(sip),
		TotalAmount:        total,
		LastContribution:   &last,
	}
}

// contributionDates returns the distinct UTC calendar dates, oldest first
func contributionDates(txs []entities.TransactionRecord) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, tx := range txs {
		t := tx.Timestamp.UTC()
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func dateIntervals(dates []time.Time) []float64 {
	var intervals []float64
	for i := 1; i < len(dates); i++ {
		intervals = append(intervals, days(dates[i].Sub(dates[i-1])))
	}
	return intervals
}

func sipFrequency(intervals []float64) entities.SIPFrequency {
	if len(intervals) == 0 {
		return entities.SIPFrequencyIrregular
	}
	avg := stat.Mean(intervals, nil)
	switch {
	case avg <= 3:
		return entities.SIPFrequencyDaily
	case avg <= 10:
		return entities.SIPFrequencyWeekly
	case avg <= 20:
		return entities.SIPFrequencyBiWeekly
	case avg <= 45:
		return entities.SIPFrequencyMonthly
	default:
		return entities.SIPFrequencyIrregular
	}
}

// sipConsistency is the share of intervals within 30% of the bucket's canonical interval
func sipConsistency(intervals []float64, frequency entities.SIPFrequency) float64 {
	expected, ok := canonicalInterval[frequency]
	if !ok || len(intervals) == 0 {
		return 0
	}
	tolerance := expected * sipTolerance
	within := 0
	for _, iv := range intervals {
		if math.Abs(iv-expected) <= tolerance {
			within++
		}
	}
	return float64(within) / float64(len(intervals))
}

// sipStreak counts the most recent dates joined by gaps of at most eight days
func sipStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	streak := 1
	for i := len(dates) - 1; i > 0; i-- {
		if days(dates[i].Sub(dates[i-1])) > sipStreakGapDays {
			break
		}
		streak++
	}
	return streak
}

func monthKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func analyzeMonthlyStreak(purchases []entities.TransactionRecord, now time.Time) entities.MonthlyStreak {
	if len(purchases) == 0 {
		return entities.MonthlyStreak{}
	}

	present := make(map[string]bool)
	var months []time.Time
	for _, tx := range purchases {
		m := monthStart(tx.Timestamp)
		key := monthKey(m)
		if !present[key] {
			present[key] = true
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	keys := make([]string, len(months))
	for i, m := range months {
		keys[i] = monthKey(m)
	}

	span := monthSpan(months)
	return entities.MonthlyStreak{
		CurrentStreak: currentMonthStreak(present, now),
		LongestStreak: longestMonthStreak(months),
		TotalMonths:   len(months),
		Consistency:   math.Min(1, float64(len(months))/math.Max(1, float64(span))),
		Months:        keys,
	}
}

// currentMonthStreak counts back from this month, or from last month while this month is still open
func currentMonthStreak(present map[string]bool, now time.Time) int {
	cursor := monthStart(now)
	if !present[monthKey(cursor)] {
		cursor = cursor.AddDate(0, -1, 0)
		if !present[monthKey(cursor)] {
			return 0
		}
	}
	streak := 0
	for present[monthKey(cursor)] {
		streak++
		cursor = cursor.AddDate(0, -1, 0)
	}
	return streak
}

func longestMonthStreak(months []time.Time) int {
	if len(months) == 0 {
		return 0
	}
	longest, current := 1, 1
	for i := 1; i < len(months); i++ {
		if months[i].Equal(months[i-1].AddDate(0, 1, 0)) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}
	return longest
}

// monthSpan approximates the history length in 30-day months, rounded up
func monthSpan(months []time.Time) int {
	if len(months) < 2 {
		return 1
	}
	diff := days(months[len(months)-1].Sub(months[0])) / 30
	return int(math.Ceil(diff))
}
