package models

// CycleState describes how calories burned were derived.
type CycleState int

const (
	CycleNoData CycleState = iota
	CyclePending
	CycleScored
	CycleEstimated
)

func (s CycleState) String() string {
	switch s {
	case CyclePending:
		return "pending"
	case CycleScored:
		return "scored"
	case CycleEstimated:
		return "estimated"
	default:
		return "no_data"
	}
}

func (s CycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CycleState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = CyclePending
	case "scored":
		*s = CycleScored
	case "estimated":
		*s = CycleEstimated
	default:
		*s = CycleNoData
	}
	return nil
}

// CaloriesSource records where calories eaten came from.
type CaloriesSource string

const (
	SourceNone      CaloriesSource = "none"
	SourceFatSecret CaloriesSource = "fatsecret"
)

// SnapshotStatus separates a clean snapshot from one built with provider failures.
type SnapshotStatus string

const (
	StatusOK       SnapshotStatus = "ok"
	StatusDegraded SnapshotStatus = "degraded"
)
