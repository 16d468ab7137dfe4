package whoop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/whoop"
)

var kyiv = time.FixedZone("EET", 2*60*60)

// 14:00 local on a weekday.
var summaryNow = time.Date(2025, 3, 10, 14, 0, 0, 0, kyiv)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, kyiv)
}

func ptr[T any](v T) *T { return &v }

func scoredCycle(start, end time.Time, kcal float64) whoop.Cycle {
	return whoop.Cycle{
		Start:      start,
		End:        &end,
		ScoreState: whoop.ScoreScored,
		Score:      &whoop.CycleScore{Strain: 11.26, Kilojoule: kcal * 4.184},
	}
}

func openCycle(start time.Time) whoop.Cycle {
	return whoop.Cycle{Start: start, ScoreState: whoop.ScorePending}
}

func nightSleep(end time.Time) whoop.Sleep {
	return whoop.Sleep{
		Start:      end.Add(-8 * time.Hour),
		End:        end,
		ScoreState: whoop.ScoreScored,
		Score: &whoop.SleepScore{
			StageSummary: whoop.SleepStages{
				TotalInBedTimeMilli:         8 * 3_600_000,
				TotalAwakeTimeMilli:         30 * 60_000,
				TotalLightSleepTimeMilli:    4 * 3_600_000,
				TotalSlowWaveSleepTimeMilli: 90 * 60_000,
				TotalREMSleepTimeMilli:      2 * 3_600_000,
			},
			RespiratoryRate:            15.23,
			SleepPerformancePercentage: 91,
			SleepConsistencyPercentage: 80,
			SleepEfficiencyPercentage:  93.5,
		},
	}
}

func workout(start time.Time, kcal float64) whoop.Workout {
	return whoop.Workout{
		Start:      start,
		End:        start.Add(time.Hour),
		SportName:  "running",
		ScoreState: whoop.ScoreScored,
		Score:      &whoop.WorkoutScore{Strain: 9.87, AverageHeartRate: 140, MaxHeartRate: 172, Kilojoule: kcal * 4.184},
	}
}

func TestKilojouleToKcal(t *testing.T) {
	p := &whoop.Payload{Cycles: []whoop.Cycle{{
		Start:      at(6, 0),
		End:        ptr(at(13, 0)),
		ScoreState: whoop.ScoreScored,
		Score:      &whoop.CycleScore{Kilojoule: 4184, Strain: 7.04},
	}}}
	s := whoop.Summarize(p, summaryNow, kyiv)
	assert.Equal(t, models.CycleScored, s.CycleState)
	assert.Equal(t, 1000, s.CaloriesOut)
	assert.Equal(t, 7.0, s.Strain)
}

func TestSummarize_NoCycles(t *testing.T) {
	s := whoop.Summarize(&whoop.Payload{}, summaryNow, kyiv)
	assert.Equal(t, models.CycleNoData, s.CycleState)
	assert.Zero(t, s.CaloriesOut)

	s = whoop.Summarize(nil, summaryNow, kyiv)
	assert.Equal(t, models.CycleNoData, s.CycleState)
}

func TestSummarize_EstimateScenario(t *testing.T) {
	// 2000 kcal over a 24h reference cycle, woke 6h ago, 300 kcal workout today.
	wake := at(8, 0)
	p := &whoop.Payload{
		Cycles: []whoop.Cycle{
			openCycle(wake),
			scoredCycle(wake.Add(-24*time.Hour), wake, 2000),
		},
		Sleeps:   []whoop.Sleep{nightSleep(wake)},
		Workouts: []whoop.Workout{workout(at(10, 0), 300)},
	}
	s := whoop.Summarize(p, summaryNow, kyiv)
	assert.Equal(t, models.CycleEstimated, s.CycleState)
	assert.Equal(t, 800, s.CaloriesOut)
	assert.Equal(t, 1, s.WorkoutCount)
	require.NotNil(t, s.WakeTime)
	assert.True(t, s.WakeTime.Equal(wake))
}

func TestSummarize_ReferenceWorkoutsNotDoubleCounted(t *testing.T) {
	wake := at(8, 0)
	refStart := wake.Add(-24 * time.Hour)
	p := &whoop.Payload{
		Cycles: []whoop.Cycle{
			openCycle(wake),
			scoredCycle(refStart, wake, 2400),
		},
		Sleeps:   []whoop.Sleep{nightSleep(wake)},
		Workouts: []whoop.Workout{workout(refStart.Add(4*time.Hour), 480)},
	}
	s := whoop.Summarize(p, summaryNow, kyiv)
	// (2400-480)/24 * 6
	assert.Equal(t, 480, s.CaloriesOut)
	assert.Zero(t, s.WorkoutCount)
}

func TestEstimate_Monotonic(t *testing.T) {
	prev := -1
	for h := 0.0; h <= 18; h += 0.5 {
		got := whoop.Estimate(whoop.EstimateInput{
			ReferenceKcal:    2300,
			ReferenceHours:   23.5,
			HoursSinceWake:   h,
			TodayWorkoutKcal: 250,
		})
		assert.GreaterOrEqual(t, got, prev, "hours since wake %.1f", h)
		prev = got
	}
}

func TestEstimate_AtWakeOnlyWorkouts(t *testing.T) {
	got := whoop.Estimate(whoop.EstimateInput{
		ReferenceKcal:    2000,
		ReferenceHours:   24,
		HoursSinceWake:   0,
		TodayWorkoutKcal: 312.4,
	})
	assert.Equal(t, 312, got)
}

func TestEstimate_ShortReferenceCycleClamped(t *testing.T) {
	got := whoop.Estimate(whoop.EstimateInput{ReferenceKcal: 100, ReferenceHours: 0.25, HoursSinceWake: 2})
	assert.Equal(t, 200, got)
}

func TestSummarize_PendingWithoutWake(t *testing.T) {
	p := &whoop.Payload{Cycles: []whoop.Cycle{
		openCycle(at(8, 0)),
		scoredCycle(at(8, 0).Add(-24*time.Hour), at(8, 0), 2150),
	}}
	s := whoop.Summarize(p, summaryNow, kyiv)
	assert.Equal(t, models.CyclePending, s.CycleState)
	assert.Equal(t, 2150, s.CaloriesOut)
	assert.Nil(t, s.WakeTime)
}

func TestSummarize_PendingWithoutReference(t *testing.T) {
	p := &whoop.Payload{
		Cycles: []whoop.Cycle{openCycle(at(8, 0))},
		Sleeps: []whoop.Sleep{nightSleep(at(8, 0))},
	}
	s := whoop.Summarize(p, summaryNow, kyiv)
	assert.Equal(t, models.CyclePending, s.CycleState)
	assert.Zero(t, s.CaloriesOut)
}

func TestSummarize_WakeIgnoresNapsAndYesterday(t *testing.T) {
	nap := nightSleep(at(13, 0))
	nap.Nap = true
	yesterday := nightSleep(at(8, 0).Add(-24 * time.Hour))
	p := &whoop.Payload{
		Cycles: []whoop.Cycle{
			openCycle(at(8, 0)),
			scoredCycle(at(8, 0).Add(-24*time.Hour), at(8, 0), 2000),
		},
		Sleeps: []whoop.Sleep{nap, yesterday},
	}
	s := whoop.Summarize(p, summaryNow, kyiv)
	assert.Equal(t, models.CyclePending, s.CycleState)
	assert.Nil(t, s.WakeTime)
	assert.Empty(t, s.SleepInfo)
}

func TestSummarize_TextFields(t *testing.T) {
	p := &whoop.Payload{
		Sleeps: []whoop.Sleep{nightSleep(at(7, 30))},
		Recoveries: []whoop.Recovery{
			{ScoreState: whoop.ScorePending},
			{ScoreState: whoop.ScoreScored, Score: &whoop.RecoveryScore{RecoveryScore: nil}},
			{ScoreState: whoop.ScoreScored, Score: &whoop.RecoveryScore{
				RecoveryScore: ptr(67.0), RestingHeartRate: 52, HRVRmssdMilli: 48.26, SpO2Percentage: 96.5,
			}},
		},
		Workouts: []whoop.Workout{workout(at(10, 0), 300), workout(at(8, 0).Add(-24*time.Hour), 500)},
		Body:     &whoop.BodyMeasurement{HeightMeter: 1.8, WeightKilogram: 80.24, MaxHeartRate: 190},
	}
	s := whoop.Summarize(p, summaryNow, kyiv)

	assert.Equal(t, "Last sleep: 7.5h total, performance 91%, consistency 80%, efficiency 93.5%, "+
		"REM 2.0h, deep 1.5h, light 4.0h, awake 30 min, respiratory rate 15.2 rpm", s.SleepInfo)
	assert.Equal(t, "Recovery: 67%, resting HR 52 bpm, HRV 48.3 ms, SpO2 96.5%", s.RecoveryInfo)
	assert.Equal(t, "Today's workouts: running (300 kcal, strain 9.9, avg HR 140, max HR 172)", s.ActivitiesInfo)
	assert.Equal(t, "Weight: 80.2 kg, height 1.80 m, max HR 190 bpm", s.BodyInfo)
	assert.Equal(t, 1, s.WorkoutCount)
}

func TestSummaryApply(t *testing.T) {
	snap := models.EmptySnapshot()
	whoop.Summary{CaloriesOut: 900, CycleState: models.CycleEstimated, Strain: 5.5, RecoveryInfo: "Recovery: 50%"}.Apply(&snap)
	assert.Equal(t, 900, snap.CaloriesOut)
	assert.Equal(t, models.CycleEstimated, snap.CycleState)
	assert.True(t, snap.HasWhoopData())
}

func TestWorkoutCountIncludesUnscored(t *testing.T) {
	pending := workout(at(11, 0), 0)
	pending.ScoreState = whoop.ScorePending
	pending.Score = nil
	p := &whoop.Payload{Workouts: []whoop.Workout{workout(at(10, 0), 300), pending}}

	s := whoop.Summarize(p, summaryNow, kyiv)
	assert.Equal(t, 2, s.WorkoutCount)
	assert.Equal(t, "Today's workouts: running (300 kcal, strain 9.9, avg HR 140, max HR 172)", s.ActivitiesInfo)
}
