package scheduler

import (
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
)

// metricsWindow is how far back events count towards health.
const metricsWindow = 24 * time.Hour

// computeMetrics summarises loops and their recent events. Health is the
// success rate over the window scaled to 0..100, or 100 with no runs.
func computeMetrics(loops []campaign.Loop, events []campaign.LoopEvent, now time.Time) campaign.LoopMetrics {
	m := campaign.LoopMetrics{
		TotalLoops:      len(loops),
		LoopHealthScore: 100,
		AgentBreakdown:  make(map[campaign.AgentName]campaign.AgentLoopStats),
	}

	for _, l := range loops {
		st := m.AgentBreakdown[l.Agent]
		st.LoopCount++
		if l.LastRun != nil && (st.LastRun == nil || l.LastRun.After(*st.LastRun)) {
			t := *l.LastRun
			st.LastRun = &t
		}
		m.AgentBreakdown[l.Agent] = st

		if l.Status == campaign.LoopDisabled {
			continue
		}
		m.ActiveLoops++
		if m.NextLoopRun == nil || l.NextRun.Before(*m.NextLoopRun) {
			t := l.NextRun
			m.NextLoopRun = &t
		}
	}

	type tally struct{ runs, ok int }
	perAgent := make(map[campaign.AgentName]tally)
	var all tally
	cutoff := now.Add(-metricsWindow)
	for _, ev := range events {
		if ev.CreatedAt.Before(cutoff) {
			continue
		}
		t := perAgent[ev.Agent]
		t.runs++
		all.runs++
		if ev.Result.Success {
			t.ok++
			all.ok++
		}
		perAgent[ev.Agent] = t
	}
	m.LoopsExecutedLast24h = all.runs
	if all.runs > 0 {
		m.LoopHealthScore = 100 * float64(all.ok) / float64(all.runs)
	}
	for agent, t := range perAgent {
		st := m.AgentBreakdown[agent]
		st.SuccessRate = float64(t.ok) / float64(t.runs)
		m.AgentBreakdown[agent] = st
	}
	return m
}
