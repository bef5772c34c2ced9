package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"gonum.org/v1/gonum/stat"
)

const (
	largeWithdrawalThreshold = 50000
	frequentIntervalDays     = 7
	suddenConsecutiveLarge   = 3
	rapidGap                 = time.Minute
	inactiveDays             = 90
	unusualMinTransactions   = 5
	unusualOutlierLimit      = 10
	highValueOutlier         = 100000
)

var highRiskLocations = map[string]bool{
	"VPN-UNKNOWN":       true,
	"TOR-EXIT":          true,
	"SUSPICIOUS-REGION": true,
}

func analyzeWithdrawals(ledger []entities.TransactionRecord) entities.WithdrawalRisk {
	var outflows []entities.TransactionRecord
	for _, tx := range ledger {
		if tx.Type.IsOutflow() {
			outflows = append(outflows, tx)
		}
	}
	out := entities.WithdrawalRisk{}
	if len(outflows) == 0 {
		return out
	}

	consecutive := 0
	for _, tx := range outflows {
		v := tx.AmountFloat()
		out.TotalWithdrawn += v
		out.MaxWithdrawal = math.Max(out.MaxWithdrawal, v)
		if v >= largeWithdrawalThreshold {
			out.LargeWithdrawals++
			consecutive++
			if consecutive > out.MaxConsecutiveLarge {
				out.MaxConsecutiveLarge = consecutive
			}
		} else {
			consecutive = 0
		}
	}
	out.SuddenPattern = out.MaxConsecutiveLarge >= suddenConsecutiveLarge

	dates := make([]time.Time, len(outflows))
	for i, tx := range outflows {
		dates[i] = tx.Timestamp
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var intervals []float64
	for i := 1; i < len(dates); i++ {
		intervals = append(intervals, days(dates[i].Sub(dates[i-1])))
	}
	avgInterval := 0.0
	if len(intervals) > 0 {
		avgInterval = stat.Mean(intervals, nil)
	}
	if avgInterval < frequentIntervalDays {
		out.FrequentWithdrawals = len(outflows)
	}
	out.AvgInterval = round2(avgInterval)

	if span := days(dates[len(dates)-1].Sub(dates[0])); span > 0 {
		out.WithdrawalFrequency = round2(float64(len(outflows)) / (span / 30))
	}

	score := 0
	if out.LargeWithdrawals > 0 {
		score += min(out.LargeWithdrawals*10, 30)
	}
	if out.FrequentWithdrawals > 0 {
		score += min(out.FrequentWithdrawals*5, 20)
	}
	if out.SuddenPattern {
		score += 15
	}
	out.RiskScore = min(40, score)
	return out
}

func (a *Analyzer) detectFraud(ctx context.Context, ledger []entities.TransactionRecord, profile *entities.UserProfile) entities.FraudIndicators {
	out := entities.FraudIndicators{Indicators: []string{}}
	score := 0

	if len(ledger) > 0 {
		mean, std := stat.PopMeanStdDev(amounts(ledger), nil)
		for _, tx := range ledger {
			v := tx.AmountFloat()
			if math.Abs(v-mean) > 3*std && v > mean*2 {
				out.Details.UnusualAmounts++
			}
		}
	}
	for _, tx := range ledger {
		if h := tx.Timestamp.In(a.location).Hour(); h >= 2 && h <= 5 {
			out.Details.UnusualTimeTransfers++
		}
		if tx.IsSelfTransfer() {
			out.Details.CircularTransactions++
		}
	}
	for i := 1; i < len(ledger); i++ {
		// ledger is newest first
		if ledger[i-1].Timestamp.Sub(ledger[i].Timestamp) < rapidGap {
			out.Details.RapidTransactions++
		}
	}

	if n := out.Details.UnusualAmounts; n > 0 {
		score += n * 10
		out.Indicators = append(out.Indicators, "unusual-amounts")
	}
	if n := out.Details.UnusualTimeTransfers; n > 0 {
		score += n * 5
		out.Indicators = append(out.Indicators, "unusual-timing")
	}
	if n := out.Details.RapidTransactions; n > 0 {
		score += n * 15
		out.Indicators = append(out.Indicators, "rapid-transactions")
	}
	if n := out.Details.CircularTransactions; n > 0 {
		score += n * 20
		out.Indicators = append(out.Indicators, "circular-transactions")
	}

	if profile != nil && len(profile.Locations) > 0 {
		res := a.locations.CheckTransactions(ctx, ledger, profile.Locations)
		score += res.Score
		out.Indicators = append(out.Indicators, res.Indicators...)
	}
	res := a.devices.CheckDevices(ctx, ledger)
	score += res.Score
	out.Indicators = append(out.Indicators, res.Indicators...)

	out.SuspiciousActivity = len(out.Indicators)
	out.Score = min(100, score)
	switch {
	case score >= 70:
		out.Severity = LevelHigh
	case score >= 40:
		out.Severity = LevelMedium
	default:
		out.Severity = LevelLow
	}
	return out
}

func (a *Analyzer) analyzeWallets(ctx context.Context, userID string, p *entities.Portfolio) entities.WalletUsage {
	out := entities.WalletUsage{Types: []entities.Platform{}, Indicators: []string{}}
	wallets := entities.AddressSet{}
	if p != nil {
		for _, platform := range entities.AllPlatforms {
			if h := p.Holding(platform); h != nil && h.Address != "" {
				wallets[platform] = h.Address
				out.Types = append(out.Types, platform)
			}
		}
	}
	out.Count = len(wallets)
	out.MultiChainUsage = len(out.Types)

	score := 0
	if out.Count > 4 {
		score += 15
		out.Indicators = append(out.Indicators, "excessive-wallets")
	}
	if a.walletChanges.FrequentChanges(ctx, userID, wallets) {
		score += 10
		out.Indicators = append(out.Indicators, "frequent-wallet-changes")
	}
	out.RiskScore = min(20, score)
	return out
}

func analyzeActivity(ledger []entities.TransactionRecord, now time.Time) entities.ActivityLevel {
	if len(ledger) == 0 {
		return entities.ActivityLevel{DaysSinceLastActivity: 365, RiskScore: 20}
	}

	newest, oldest := ledger[0].Timestamp, ledger[len(ledger)-1].Timestamp
	out := entities.ActivityLevel{
		DaysSinceLastActivity: int(math.Floor(days(now.Sub(newest)))),
		ActivityFrequency:     round2(float64(len(ledger)) / math.Max(days(now.Sub(oldest)), 1)),
		TotalTransactions:     len(ledger),
	}

	months := make(map[string]bool)
	for _, tx := range ledger {
		t := tx.Timestamp.UTC()
		months[fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))] = true
	}
	out.ActiveMonths = len(months)

	switch {
	case out.DaysSinceLastActivity > inactiveDays:
		out.RiskScore = 20
	case out.DaysSinceLastActivity > 30:
		out.RiskScore = 10
	}
	return out
}

// detectUnusual unions amount outliers beyond 3σ with hour-of-day outliers beyond 2σ.
// Hours are read on the wall clock of loc.
func detectUnusual(ledger []entities.TransactionRecord, loc *time.Location) entities.UnusualTransactions {
	out := entities.UnusualTransactions{Patterns: []string{}}
	if len(ledger) < unusualMinTransactions {
		return out
	}

	hours := make([]float64, len(ledger))
	for i, tx := range ledger {
		hours[i] = float64(tx.Timestamp.In(loc).Hour())
	}
	amountMean, amountStd := stat.PopMeanStdDev(amounts(ledger), nil)
	hourMean, hourStd := stat.PopMeanStdDev(hours, nil)

	seen := make(map[string]bool)
	var unusual []entities.TransactionRecord
	add := func(tx entities.TransactionRecord) {
		if !seen[tx.ID] {
			seen[tx.ID] = true
			unusual = append(unusual, tx)
		}
	}
	for _, tx := range ledger {
		if math.Abs(tx.AmountFloat()-amountMean) > 3*amountStd {
			add(tx)
		}
	}
	for i, tx := range ledger {
		if math.Abs(hours[i]-hourMean) > 2*hourStd {
			add(tx)
		}
	}

	out.Count = len(unusual)
	out.RiskScore = min(15, out.Count*3)
	if len(unusual) > unusualOutlierLimit {
		out.Outliers = unusual[:unusualOutlierLimit]
	} else {
		out.Outliers = unusual
	}

	if len(unusual) > 0 {
		maxAmount, early := 0.0, 0
		for _, tx := range unusual {
			maxAmount = math.Max(maxAmount, tx.AmountFloat())
			if tx.Timestamp.In(loc).Hour() < 6 {
				early++
			}
		}
		if maxAmount > highValueOutlier {
			out.Patterns = append(out.Patterns, "large-amounts")
		}
		if float64(early) > float64(len(unusual))*0.3 {
			out.Patterns = append(out.Patterns, "unusual-timing")
		}
	}
	return out
}

func (a *Analyzer) analyzeGeography(ctx context.Context, profile *entities.UserProfile) entities.GeographicRisk {
	if profile == nil || profile.Location == "" {
		return entities.GeographicRisk{Score: 5, Indicators: []string{"location-unknown"}}
	}

	out := entities.GeographicRisk{Indicators: []string{}, Location: profile.Location}
	if highRiskLocations[profile.Location] {
		out.Score += 20
		out.Indicators = append(out.Indicators, "high-risk-location")
	}
	res := a.locations.CheckProfile(ctx, profile)
	out.Consistent = res.Consistent
	if !res.Consistent {
		out.Score += 10
		out.Indicators = append(out.Indicators, "location-inconsistent")
	}
	return out
}

// analyzeVelocity buckets by calendar day, week and month in loc
func analyzeVelocity(ledger []entities.TransactionRecord, loc *time.Location) entities.VelocityAnalysis {
	out := entities.VelocityAnalysis{
		Daily: velocityWindow(ledger, loc, func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}),
		Weekly: velocityWindow(ledger, loc, func(t time.Time) time.Time {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			return d.AddDate(0, 0, -int(d.Weekday()))
		}),
		Monthly: velocityWindow(ledger, loc, func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		}),
	}
	if out.Daily.Count > 10 {
		out.RiskScore += 20
	}
	out.RiskScore = min(25, out.RiskScore)
	return out
}

// velocityWindow reports the rounded mean, max and min transaction count per bucket
func velocityWindow(ledger []entities.TransactionRecord, loc *time.Location, bucket func(time.Time) time.Time) entities.VelocityWindow {
	counts := make(map[time.Time]int)
	for _, tx := range ledger {
		counts[bucket(tx.Timestamp.In(loc))]++
	}
	if len(counts) == 0 {
		return entities.VelocityWindow{}
	}
	w := entities.VelocityWindow{Min: math.MaxInt}
	total := 0
	for _, c := range counts {
		total += c
		w.Max = max(w.Max, c)
		w.Min = min(w.Min, c)
	}
	w.Count = int(math.Round(float64(total) / float64(len(counts))))
	return w
}

func (a *Analyzer) detectAnomalies(ctx context.Context, ledger []entities.TransactionRecord, p *entities.Portfolio) entities.BehavioralAnomalies {
	out := entities.BehavioralAnomalies{
		Anomalies: []string{},
		Details:   make(map[string]entities.AnomalyFinding, len(detectorSlots)),
	}
	score := 0
	for _, slot := range detectorSlots {
		finding := a.detectors[slot.name].Detect(ctx, ledger, p)
		out.Details[slot.detailKey] = finding
		if finding.Anomaly {
			out.Anomalies = append(out.Anomalies, slot.name)
			score += finding.Severity * slot.weight
		}
	}
	out.RiskScore = min(20, score)
	return out
}
