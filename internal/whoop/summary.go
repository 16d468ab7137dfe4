package whoop

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"telegram-health-assistant/internal/models"
)

const kilojoulesPerKcal = 4.184

// maxListedWorkouts bounds the activities line fed to the prompt.
const maxListedWorkouts = 5

func KilojouleToKcal(kj float64) float64 {
	return kj / kilojoulesPerKcal
}

// Summary is the WHOOP half of a today snapshot.
type Summary struct {
	CaloriesOut    int
	CycleState     models.CycleState
	Strain         float64
	WorkoutCount   int
	SleepInfo      string
	RecoveryInfo   string
	ActivitiesInfo string
	BodyInfo       string
	// WakeTime is the end of the sleep the user woke from today, if any.
	WakeTime *time.Time
}

// Apply copies the summary into a snapshot.
func (s Summary) Apply(snap *models.Snapshot) {
	snap.CaloriesOut = s.CaloriesOut
	snap.CycleState = s.CycleState
	snap.Strain = s.Strain
	snap.WorkoutCount = s.WorkoutCount
	snap.SleepInfo = s.SleepInfo
	snap.RecoveryInfo = s.RecoveryInfo
	snap.ActivitiesInfo = s.ActivitiesInfo
	snap.BodyInfo = s.BodyInfo
}

// Summarize turns a fetched payload into today's numbers. Day boundaries
// come from loc; now must not be earlier than the payload's records for the
// estimate to be meaningful.
func Summarize(p *Payload, now time.Time, loc *time.Location) Summary {
	s := Summary{CycleState: models.CycleNoData}
	if p == nil {
		return s
	}
	dayStart, dayEnd := localDay(now, loc)

	today := todaysWorkouts(p.Workouts, dayStart, dayEnd)
	s.WorkoutCount = countStarted(p.Workouts, dayStart, dayEnd)
	s.ActivitiesInfo = activitiesInfo(today)
	s.RecoveryInfo = recoveryInfo(p.Recoveries)
	s.BodyInfo = bodyInfo(p.Body)

	if sl := lastSleepEnding(p.Sleeps, dayStart, now); sl != nil {
		wake := sl.End
		s.WakeTime = &wake
		s.SleepInfo = sleepInfo(p.Sleeps, dayStart, now)
	}

	cycles := newestFirst(p.Cycles)
	if len(cycles) == 0 {
		return s
	}
	if newest := cycles[0]; newest.Scored() {
		s.CycleState = models.CycleScored
		s.CaloriesOut = roundKcal(KilojouleToKcal(newest.Score.Kilojoule))
		s.Strain = round1(newest.Score.Strain)
		return s
	}

	// Newest cycle is still open (or unscorable). Extrapolate from the last
	// completed cycle.
	s.CycleState = models.CyclePending
	ref := lastScoredCycle(cycles)
	if ref == nil {
		return s
	}
	s.Strain = round1(ref.Score.Strain)
	refKcal := KilojouleToKcal(ref.Score.Kilojoule)
	if s.WakeTime == nil {
		s.CaloriesOut = roundKcal(refKcal)
		return s
	}

	s.CaloriesOut = Estimate(EstimateInput{
		ReferenceKcal:        refKcal,
		ReferenceWorkoutKcal: workoutKcalBetween(p.Workouts, ref.Start, *ref.End),
		ReferenceHours:       ref.End.Sub(ref.Start).Hours(),
		HoursSinceWake:       now.Sub(*s.WakeTime).Hours(),
		TodayWorkoutKcal:     sumKcal(today),
	})
	s.CycleState = models.CycleEstimated
	return s
}

type EstimateInput struct {
	ReferenceKcal        float64
	ReferenceWorkoutKcal float64
	ReferenceHours       float64
	HoursSinceWake       float64
	TodayWorkoutKcal     float64
}

// Estimate extrapolates calories burned so far today. The reference cycle's
// workouts are taken out of its hourly rate and today's own workouts are
// added back, so exercise is not counted twice.
func Estimate(in EstimateInput) int {
	hours := math.Max(in.ReferenceHours, 1)
	base := math.Max(in.ReferenceKcal-in.ReferenceWorkoutKcal, 0) / hours
	awake := math.Max(in.HoursSinceWake, 0)
	return roundKcal(base*awake) + roundKcal(in.TodayWorkoutKcal)
}

func localDay(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func newestFirst(cycles []Cycle) []Cycle {
	out := make([]Cycle, len(cycles))
	copy(out, cycles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out
}

func lastScoredCycle(newest []Cycle) *Cycle {
	for i := range newest {
		if newest[i].Scored() && newest[i].End != nil {
			return &newest[i]
		}
	}
	return nil
}

// lastSleepEnding returns the latest non-nap sleep that ended in [from, now].
func lastSleepEnding(sleeps []Sleep, from, now time.Time) *Sleep {
	var best *Sleep
	for i := range sleeps {
		sl := &sleeps[i]
		if sl.Nap || sl.End.IsZero() || sl.End.Before(from) || sl.End.After(now) {
			continue
		}
		if best == nil || sl.End.After(best.End) {
			best = sl
		}
	}
	return best
}

// todaysWorkouts returns the day's scored workouts; only these carry kcal.
func todaysWorkouts(workouts []Workout, dayStart, dayEnd time.Time) []Workout {
	var out []Workout
	for _, w := range workouts {
		if w.ScoreState != ScoreScored || w.Score == nil {
			continue
		}
		if w.Start.Before(dayStart) || !w.Start.Before(dayEnd) {
			continue
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// countStarted counts every workout started in the local day, scored or not.
func countStarted(workouts []Workout, dayStart, dayEnd time.Time) int {
	var n int
	for _, w := range workouts {
		if !w.Start.Before(dayStart) && w.Start.Before(dayEnd) {
			n++
		}
	}
	return n
}

func workoutKcalBetween(workouts []Workout, from, to time.Time) float64 {
	var kcal float64
	for _, w := range workouts {
		if !w.Start.Before(from) && w.Start.Before(to) {
			kcal += w.Kcal()
		}
	}
	return kcal
}

func sumKcal(workouts []Workout) float64 {
	var kcal float64
	for _, w := range workouts {
		kcal += w.Kcal()
	}
	return kcal
}

func sleepInfo(sleeps []Sleep, from, now time.Time) string {
	var candidates []Sleep
	for _, sl := range sleeps {
		if sl.Nap || sl.End.Before(from) || sl.End.After(now) {
			continue
		}
		if sl.ScoreState != ScoreScored || sl.Score == nil || sl.Score.StageSummary.TotalInBedTimeMilli == 0 {
			continue
		}
		candidates = append(candidates, sl)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].End.After(candidates[j].End) })

	sc := candidates[0].Score
	st := sc.StageSummary
	asleep := st.TotalInBedTimeMilli - st.TotalAwakeTimeMilli
	return fmt.Sprintf(
		"Last sleep: %sh total, performance %s%%, consistency %s%%, efficiency %s%%, "+
			"REM %sh, deep %sh, light %sh, awake %d min, respiratory rate %s rpm",
		msToHours(asleep),
		pct(sc.SleepPerformancePercentage),
		pct(sc.SleepConsistencyPercentage),
		pct(sc.SleepEfficiencyPercentage),
		msToHours(st.TotalREMSleepTimeMilli),
		msToHours(st.TotalSlowWaveSleepTimeMilli),
		msToHours(st.TotalLightSleepTimeMilli),
		int(math.Round(float64(st.TotalAwakeTimeMilli)/60000)),
		oneDecimal(sc.RespiratoryRate),
	)
}

func recoveryInfo(recoveries []Recovery) string {
	for _, r := range recoveries {
		if r.ScoreState != ScoreScored || r.Score == nil || r.Score.RecoveryScore == nil {
			continue
		}
		rs := r.Score
		var b strings.Builder
		fmt.Fprintf(&b, "Recovery: %s%%, resting HR %s bpm, HRV %s ms",
			pct(*rs.RecoveryScore), pct(rs.RestingHeartRate), oneDecimal(rs.HRVRmssdMilli))
		if rs.SpO2Percentage != 0 {
			fmt.Fprintf(&b, ", SpO2 %s%%", pct(rs.SpO2Percentage))
		}
		if rs.SkinTempCelsius != 0 {
			fmt.Fprintf(&b, ", skin temp %s°C", pct(rs.SkinTempCelsius))
		}
		return b.String()
	}
	return ""
}

func activitiesInfo(today []Workout) string {
	if len(today) == 0 {
		return ""
	}
	parts := make([]string, 0, maxListedWorkouts)
	for i, w := range today {
		if i == maxListedWorkouts {
			break
		}
		sport := w.SportName
		if sport == "" {
			sport = "unknown"
		}
		parts = append(parts, fmt.Sprintf("%s (%d kcal, strain %s, avg HR %d, max HR %d)",
			sport, roundKcal(w.Kcal()), oneDecimal(w.Score.Strain), w.Score.AverageHeartRate, w.Score.MaxHeartRate))
	}
	return "Today's workouts: " + strings.Join(parts, "; ")
}

func bodyInfo(b *BodyMeasurement) string {
	if b == nil || b.WeightKilogram == 0 {
		return ""
	}
	out := "Weight: " + oneDecimal(b.WeightKilogram) + " kg"
	if b.HeightMeter != 0 {
		out += ", height " + strconv.FormatFloat(b.HeightMeter, 'f', 2, 64) + " m"
	}
	if b.MaxHeartRate != 0 {
		out += fmt.Sprintf(", max HR %d bpm", b.MaxHeartRate)
	}
	return out
}

func roundKcal(kcal float64) int {
	return int(math.Round(kcal))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func msToHours(ms int64) string {
	return strconv.FormatFloat(float64(ms)/3_600_000, 'f', 1, 64)
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// pct prints a provider value as given, without padding zeros.
func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
