package models

import "slices"

// Snapshot is the "today" view over both providers. It is computed per call
// and never persisted. Missing providers leave their fields zeroed.
type Snapshot struct {
	CaloriesIn       int            `json:"calories_in"`
	CaloriesInSource CaloriesSource `json:"calories_in_source"`
	Meals            string         `json:"meals"`

	CaloriesOut  int        `json:"calories_out"`
	CycleState   CycleState `json:"cycle_state"`
	Strain       float64    `json:"strain"`
	WorkoutCount int        `json:"workout_count"`

	SleepInfo      string `json:"sleep_info"`
	RecoveryInfo   string `json:"recovery_info"`
	ActivitiesInfo string `json:"activities_info"`
	BodyInfo       string `json:"body_info"`

	Status            SnapshotStatus `json:"status"`
	ExpiredProviders  []Provider     `json:"expired_providers"`
	DegradedProviders []Provider     `json:"degraded_providers"`
}

// EmptySnapshot returns a snapshot with every field at its neutral value.
func EmptySnapshot() Snapshot {
	return Snapshot{
		CaloriesInSource:  SourceNone,
		CycleState:        CycleNoData,
		Status:            StatusOK,
		ExpiredProviders:  []Provider{},
		DegradedProviders: []Provider{},
	}
}

// Expired reports whether p's credential was invalidated while building the snapshot.
func (s Snapshot) Expired(p Provider) bool {
	return slices.Contains(s.ExpiredProviders, p)
}

// HasWhoopData reports whether any WHOOP derived field is populated.
func (s Snapshot) HasWhoopData() bool {
	return s.CaloriesOut > 0 || s.SleepInfo != "" || s.RecoveryInfo != ""
}
