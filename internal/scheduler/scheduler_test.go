package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJobs struct {
	calls map[string]int
}

func (c *countingJobs) hit(name string) error {
	c.calls[name]++
	return nil
}

func (c *countingJobs) RefreshSweep(context.Context) error    { return c.hit("sweep") }
func (c *countingJobs) FatSecretCheck(context.Context) error  { return c.hit("fatsecret") }
func (c *countingJobs) Prewarm(context.Context) error         { return c.hit("prewarm") }
func (c *countingJobs) Cleanup(context.Context) error         { return c.hit("cleanup") }
func (c *countingJobs) MorningBriefing(context.Context) error { return c.hit("morning") }
func (c *countingJobs) EveningSummary(context.Context) error  { return c.hit("evening") }
func (c *countingJobs) JournalReminders(context.Context) error {
	return c.hit("journal")
}

func TestNew_RegistersAllJobs(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		loc = time.FixedZone("EET", 2*60*60)
	}
	s, err := New(context.Background(), &countingJobs{calls: map[string]int{}}, loc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	var names []string
	for _, j := range s.Jobs() {
		names = append(names, j.Name())
	}
	assert.ElementsMatch(t, []string{
		"whoop_refresh_sweep", "fatsecret_check", "prewarm",
		"morning_briefing", "evening_summary", "conversation_cleanup",
		"journal_reminders",
	}, names)
}

func TestTask_RecoversPanicsAndErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		task(context.Background(), "boom", func(context.Context) error { panic("bug") })()
	})
	assert.NotPanics(t, func() {
		task(context.Background(), "fail", func(context.Context) error { return errors.New("x") })()
	})

	var deadline bool
	task(context.Background(), "ctx", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})()
	assert.True(t, deadline)
}
