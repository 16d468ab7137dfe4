package whoop

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScoreState is WHOOP's scoring status for a record.
type ScoreState int

const (
	ScorePending ScoreState = iota
	ScoreScored
	ScoreUnscorable
)

func (s ScoreState) String() string {
	switch s {
	case ScoreScored:
		return "SCORED"
	case ScoreUnscorable:
		return "UNSCORABLE"
	default:
		return "PENDING_SCORE"
	}
}

func (s *ScoreState) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw {
	case "SCORED":
		*s = ScoreScored
	case "PENDING_SCORE", "":
		*s = ScorePending
	case "UNSCORABLE":
		*s = ScoreUnscorable
	default:
		return fmt.Errorf("unknown score_state %q", raw)
	}
	return nil
}

func (s ScoreState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type page[T any] struct {
	Records   []T    `json:"records"`
	NextToken string `json:"next_token"`
}

type Cycle struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	Start      time.Time   `json:"start"`
	End        *time.Time  `json:"end"` // nil while the cycle is open
	ScoreState ScoreState  `json:"score_state"`
	Score      *CycleScore `json:"score"`
}

type CycleScore struct {
	Strain           float64 `json:"strain"`
	Kilojoule        float64 `json:"kilojoule"`
	AverageHeartRate int     `json:"average_heart_rate"`
	MaxHeartRate     int     `json:"max_heart_rate"`
}

// Scored reports whether the cycle carries a final score.
func (c Cycle) Scored() bool {
	return c.ScoreState == ScoreScored && c.Score != nil
}

type Recovery struct {
	CycleID    int64          `json:"cycle_id"`
	SleepID    string         `json:"sleep_id"`
	UserID     int64          `json:"user_id"`
	CreatedAt  time.Time      `json:"created_at"`
	ScoreState ScoreState     `json:"score_state"`
	Score      *RecoveryScore `json:"score"`
}

type RecoveryScore struct {
	UserCalibrating  bool     `json:"user_calibrating"`
	RecoveryScore    *float64 `json:"recovery_score"`
	RestingHeartRate float64  `json:"resting_heart_rate"`
	HRVRmssdMilli    float64  `json:"hrv_rmssd_milli"`
	SpO2Percentage   float64  `json:"spo2_percentage"`
	SkinTempCelsius  float64  `json:"skin_temp_celsius"`
}

type Sleep struct {
	ID         string      `json:"id"`
	CycleID    int64       `json:"cycle_id"`
	UserID     int64       `json:"user_id"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Nap        bool        `json:"nap"`
	ScoreState ScoreState  `json:"score_state"`
	Score      *SleepScore `json:"score"`
}

type SleepScore struct {
	StageSummary               SleepStages `json:"stage_summary"`
	RespiratoryRate            float64     `json:"respiratory_rate"`
	SleepPerformancePercentage float64     `json:"sleep_performance_percentage"`
	SleepConsistencyPercentage float64     `json:"sleep_consistency_percentage"`
	SleepEfficiencyPercentage  float64     `json:"sleep_efficiency_percentage"`
}

type SleepStages struct {
	TotalInBedTimeMilli         int64 `json:"total_in_bed_time_milli"`
	TotalAwakeTimeMilli         int64 `json:"total_awake_time_milli"`
	TotalLightSleepTimeMilli    int64 `json:"total_light_sleep_time_milli"`
	TotalSlowWaveSleepTimeMilli int64 `json:"total_slow_wave_sleep_time_milli"`
	TotalREMSleepTimeMilli      int64 `json:"total_rem_sleep_time_milli"`
}

type Workout struct {
	ID         string        `json:"id"`
	UserID     int64         `json:"user_id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	SportName  string        `json:"sport_name"`
	ScoreState ScoreState    `json:"score_state"`
	Score      *WorkoutScore `json:"score"`
}

type WorkoutScore struct {
	Strain           float64 `json:"strain"`
	AverageHeartRate int     `json:"average_heart_rate"`
	MaxHeartRate     int     `json:"max_heart_rate"`
	Kilojoule        float64 `json:"kilojoule"`
}

// Kcal returns the workout energy, zero when unscored.
func (w Workout) Kcal() float64 {
	if w.ScoreState != ScoreScored || w.Score == nil {
		return 0
	}
	return KilojouleToKcal(w.Score.Kilojoule)
}

type BodyMeasurement struct {
	HeightMeter    float64 `json:"height_meter"`
	WeightKilogram float64 `json:"weight_kilogram"`
	MaxHeartRate   int     `json:"max_heart_rate"`
}

// Payload is everything one FetchContext batch returned. Lists keep WHOOP's
// newest-first ordering.
type Payload struct {
	Cycles     []Cycle
	Sleeps     []Sleep
	Recoveries []Recovery
	Workouts   []Workout
	Body       *BodyMeasurement
}
