package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
	"telegram-health-assistant/internal/stats"
	"telegram-health-assistant/internal/whoop"
)

type fakeWhoop struct {
	payload *whoop.Payload
	err     error
	panics  bool
}

func (f fakeWhoop) FetchContext(context.Context, int64) (*whoop.Payload, error) {
	if f.panics {
		panic("decoder bug")
	}
	return f.payload, f.err
}

type fakeDiary struct {
	diary  *fatsecret.Diary
	err    error
	gotDay time.Time
}

func (f *fakeDiary) FoodDiary(_ context.Context, _ int64, day time.Time) (*fatsecret.Diary, error) {
	f.gotDay = day
	return f.diary, f.err
}

var (
	kyiv = time.FixedZone("EET", 2*60*60)
	now  = time.Date(2025, 3, 10, 14, 0, 0, 0, kyiv)
)

func scoredPayload() *whoop.Payload {
	end := now.Add(-time.Hour)
	return &whoop.Payload{Cycles: []whoop.Cycle{{
		Start:      end.Add(-10 * time.Hour),
		End:        &end,
		ScoreState: whoop.ScoreScored,
		Score:      &whoop.CycleScore{Kilojoule: 4184, Strain: 9.1},
	}}}
}

func diaryOf(kcal ...fatsecret.Number) *fatsecret.Diary {
	d := &fatsecret.Diary{}
	for _, k := range kcal {
		d.Entries = append(d.Entries, fatsecret.FoodEntry{Name: "meal", Meal: "Lunch", Calories: k})
	}
	return d
}

func newService(w stats.WhoopSource, d stats.DiarySource) *stats.Service {
	return stats.NewService(w, d, kyiv, stats.WithClock(clockwork.NewFakeClockAt(now)))
}

func TestToday_ProviderCombinations(t *testing.T) {
	cases := map[string]struct {
		whoop fakeWhoop
		diary *fakeDiary

		kcalIn   int
		source   models.CaloriesSource
		kcalOut  int
		state    models.CycleState
		expired  []models.Provider
		degraded []models.Provider
		status   models.SnapshotStatus
	}{
		"none connected": {
			whoop: fakeWhoop{err: providers.ErrNotConnected},
			diary: &fakeDiary{err: providers.ErrNotConnected},
			source: models.SourceNone, state: models.CycleNoData,
			expired: []models.Provider{}, degraded: []models.Provider{}, status: models.StatusOK,
		},
		"whoop only": {
			whoop: fakeWhoop{payload: scoredPayload()},
			diary: &fakeDiary{err: providers.ErrNotConnected},
			source: models.SourceNone, kcalOut: 1000, state: models.CycleScored,
			expired: []models.Provider{}, degraded: []models.Provider{}, status: models.StatusOK,
		},
		"diary only": {
			whoop: fakeWhoop{err: providers.ErrNotConnected},
			diary: &fakeDiary{diary: diaryOf(400.4, 250)},
			kcalIn: 650, source: models.SourceFatSecret, state: models.CycleNoData,
			expired: []models.Provider{}, degraded: []models.Provider{}, status: models.StatusOK,
		},
		"both": {
			whoop: fakeWhoop{payload: scoredPayload()},
			diary: &fakeDiary{diary: diaryOf(1200)},
			kcalIn: 1200, source: models.SourceFatSecret, kcalOut: 1000, state: models.CycleScored,
			expired: []models.Provider{}, degraded: []models.Provider{}, status: models.StatusOK,
		},
		"both expired": {
			whoop: fakeWhoop{err: providers.Expired(models.ProviderWhoop)},
			diary: &fakeDiary{err: providers.Expired(models.ProviderFatSecret)},
			source: models.SourceNone, state: models.CycleNoData,
			expired:  []models.Provider{models.ProviderFatSecret, models.ProviderWhoop},
			degraded: []models.Provider{}, status: models.StatusDegraded,
		},
		"whoop down, diary ok": {
			whoop: fakeWhoop{err: &providers.ProviderError{Provider: models.ProviderWhoop, Op: "GET /cycle", StatusCode: 502}},
			diary: &fakeDiary{diary: diaryOf(300)},
			kcalIn: 300, source: models.SourceFatSecret, state: models.CycleNoData,
			expired: []models.Provider{}, degraded: []models.Provider{models.ProviderWhoop}, status: models.StatusDegraded,
		},
		"diary unreachable": {
			whoop: fakeWhoop{payload: scoredPayload()},
			diary: &fakeDiary{err: errors.Join(providers.ErrTransient, errors.New("dial tcp: timeout"))},
			source: models.SourceNone, kcalOut: 1000, state: models.CycleScored,
			expired: []models.Provider{}, degraded: []models.Provider{models.ProviderFatSecret}, status: models.StatusDegraded,
		},
		"whoop panics": {
			whoop: fakeWhoop{panics: true},
			diary: &fakeDiary{diary: diaryOf(500)},
			kcalIn: 500, source: models.SourceFatSecret, state: models.CycleNoData,
			expired: []models.Provider{}, degraded: []models.Provider{models.ProviderWhoop}, status: models.StatusDegraded,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			snap := newService(tc.whoop, tc.diary).Today(context.Background(), 1)

			assert.Equal(t, tc.kcalIn, snap.CaloriesIn)
			assert.Equal(t, tc.source, snap.CaloriesInSource)
			assert.Equal(t, tc.kcalOut, snap.CaloriesOut)
			assert.Equal(t, tc.state, snap.CycleState)
			assert.Equal(t, tc.expired, snap.ExpiredProviders)
			assert.Equal(t, tc.degraded, snap.DegradedProviders)
			assert.Equal(t, tc.status, snap.Status)
		})
	}
}

func TestToday_EmptyDiaryStillCountsAsFatSecret(t *testing.T) {
	snap := newService(fakeWhoop{err: providers.ErrNotConnected}, &fakeDiary{diary: diaryOf()}).Today(context.Background(), 1)
	assert.Equal(t, 0, snap.CaloriesIn)
	assert.Equal(t, models.SourceFatSecret, snap.CaloriesInSource)
	assert.Empty(t, snap.Meals)
}

func TestToday_DiaryUsesLocalDay(t *testing.T) {
	d := &fakeDiary{diary: diaryOf()}
	newService(fakeWhoop{err: providers.ErrNotConnected}, d).Today(context.Background(), 1)
	assert.Equal(t, kyiv, d.gotDay.Location())
	assert.True(t, d.gotDay.Equal(now))
}
