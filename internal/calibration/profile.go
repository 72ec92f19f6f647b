// Package calibration computes session-level metacognitive calibration and
// behavioural archetype flags from a response set. Everything here is pure
// and deterministic.
package calibration

import (
	"math"

	"github.com/abhisek/diagnostica/internal/telemetry"
)

// Thresholds for the behaviour flags. RapidGuessFloorMs is not read from
// config; evaluation copies the diagnosis floor into it.
type Thresholds struct {
	RapidGuessFloorMs     int     `mapstructure:"-"`
	ImpulsiveRapidRate    float64 `mapstructure:"impulsive_rapid_rate"`
	AnxiousHesitationAvg  float64 `mapstructure:"anxious_hesitation_avg"`
	AnxiousFocusLossAvg   float64 `mapstructure:"anxious_focus_loss_avg"`
	AnxiousMinAccuracyPct float64 `mapstructure:"anxious_min_accuracy_pct"`
}

// DefaultThresholds returns the reconstructed production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RapidGuessFloorMs:     300,
		ImpulsiveRapidRate:    0.25,
		AnxiousHesitationAvg:  2.0,
		AnxiousFocusLossAvg:   1.0,
		AnxiousMinAccuracyPct: 70,
	}
}

// BucketStat is the observed accuracy within one confidence bucket.
type BucketStat struct {
	Confidence  telemetry.Confidence `json:"confidence"`
	Count       int                  `json:"count"`
	Certainty   float64              `json:"certainty"`
	AccuracyPct float64              `json:"accuracyPct"`
	Gap         float64              `json:"gap"`
}

// Calibration compares stated confidence with observed accuracy.
type Calibration struct {
	CertaintyAverage float64      `json:"certaintyAverage"`
	AccuracyAverage  float64      `json:"accuracyAverage"`
	BlindSpots       int          `json:"blindSpots"`
	FragileKnowledge int          `json:"fragileKnowledge"`
	ECEScore         float64      `json:"eceScore"`
	Buckets          []BucketStat `json:"buckets,omitempty"`
}

// BehaviorProfile holds the archetype flags for a session.
type BehaviorProfile struct {
	IsImpulsive    bool    `json:"isImpulsive"`
	IsAnxious      bool    `json:"isAnxious"`
	RapidGuessRate float64 `json:"rapidGuessRate"` // share of timed responses
}

// Profile computes calibration and behaviour for a full response set. An
// empty set yields zero values.
func Profile(responses []telemetry.QuestionResponse, th Thresholds) (Calibration, BehaviorProfile) {
	var cal Calibration
	var beh BehaviorProfile
	n := len(responses)
	if n == 0 {
		return cal, beh
	}

	type bucket struct{ count, correct int }
	buckets := make(map[telemetry.Confidence]*bucket)

	var certaintySum float64
	var correct, rapid, timed, hesitations, focusLosses int
	for i := range responses {
		r := &responses[i]
		certaintySum += r.Confidence.Certainty()
		b, ok := buckets[r.Confidence]
		if !ok {
			b = &bucket{}
			buckets[r.Confidence] = b
		}
		b.count++
		if r.IsCorrect {
			correct++
			b.correct++
		}
		if r.Confidence == telemetry.ConfidenceHigh && !r.IsCorrect {
			cal.BlindSpots++
		}
		if r.Confidence == telemetry.ConfidenceLow && r.IsCorrect {
			cal.FragileKnowledge++
		}
		if !r.Telemetry.TimeUnknown {
			timed++
		}
		if r.IsRapidGuess(th.RapidGuessFloorMs) {
			rapid++
		}
		hesitations += r.Telemetry.HesitationCount
		focusLosses += r.Telemetry.FocusLostCount
	}

	cal.CertaintyAverage = round2(certaintySum / float64(n))
	cal.AccuracyAverage = round2(100 * float64(correct) / float64(n))

	// ECE: unweighted mean over non-empty buckets, fixed bucket order.
	var gapSum float64
	for _, c := range telemetry.AllConfidences() {
		b, ok := buckets[c]
		if !ok {
			continue
		}
		acc := 100 * float64(b.correct) / float64(b.count)
		gap := math.Abs(acc - c.Certainty())
		gapSum += gap
		cal.Buckets = append(cal.Buckets, BucketStat{
			Confidence:  c,
			Count:       b.count,
			Certainty:   c.Certainty(),
			AccuracyPct: round2(acc),
			Gap:         round2(gap),
		})
	}
	cal.ECEScore = round2(gapSum / float64(len(cal.Buckets)))

	// Untimed answers can be neither rapid nor deliberate.
	if timed > 0 {
		beh.RapidGuessRate = round2(float64(rapid) / float64(timed))
		beh.IsImpulsive = float64(rapid)/float64(timed) > th.ImpulsiveRapidRate
	}
	avgHesitation := float64(hesitations) / float64(n)
	avgFocusLoss := float64(focusLosses) / float64(n)
	beh.IsAnxious = avgHesitation > th.AnxiousHesitationAvg &&
		avgFocusLoss > th.AnxiousFocusLossAvg &&
		100*float64(correct)/float64(n) >= th.AnxiousMinAccuracyPct

	return cal, beh
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
