package scheduler

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/notify"
	"go.uber.org/zap"
)

// DefaultDigestPeriod is how far back a digest looks.
const DefaultDigestPeriod = 24 * time.Hour

// BuildDigest summarises loop activity between since and now. Agents are
// listed alphabetically.
func BuildDigest(st campaign.LoopState, since, now time.Time) notify.Digest {
	d := notify.Digest{PeriodStart: since, PeriodEnd: now}
	perAgent := make(map[campaign.AgentName]*notify.AgentDigest)
	var ok int
	for _, ev := range st.LoopEvents {
		if ev.CreatedAt.Before(since) || ev.CreatedAt.After(now) {
			continue
		}
		a := perAgent[ev.Agent]
		if a == nil {
			a = &notify.AgentDigest{Agent: ev.Agent}
			perAgent[ev.Agent] = a
		}
		a.Runs++
		a.Suggestions += ev.Result.SuggestionsGenerated
		d.Runs++
		d.Suggestions += ev.Result.SuggestionsGenerated
		if ev.Result.Success {
			ok++
		} else {
			a.Failures++
			d.Failures++
		}
	}
	for _, sg := range st.LoopSuggestions {
		if sg.Status == campaign.SuggestionPending {
			d.Pending++
		}
	}
	d.Health = 100
	if d.Runs > 0 {
		d.Health = 100 * float64(ok) / float64(d.Runs)
	}
	for _, a := range perAgent {
		d.Agents = append(d.Agents, *a)
	}
	slices.SortFunc(d.Agents, func(a, b notify.AgentDigest) int {
		return strings.Compare(string(a.Agent), string(b.Agent))
	})
	return d
}

// SendDigest posts a digest of the last DefaultDigestPeriod. Quiet periods
// with no runs are skipped; the returned bool reports whether one was sent.
func (s *Scheduler) SendDigest(ctx context.Context) (bool, error) {
	now := s.now()
	d := BuildDigest(s.engine.Loops(), now.Add(-DefaultDigestPeriod), now)
	if d.Runs == 0 {
		s.log.Debug("digest skipped: no loop runs")
		return false, nil
	}
	n := notify.Notice{Campaign: s.engine.Meta().Name, Digest: &d}
	if err := s.notifier.Notify(ctx, n); err != nil {
		return false, err
	}
	s.log.Info("digest sent", zap.Int("runs", d.Runs), zap.Int("suggestions", d.Suggestions))
	return true, nil
}
