// Package scheduler runs the campaign's background loops on their cron
// schedules and feeds the results back into the engine.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/notify"
	"go.uber.org/zap"
)

var (
	// ErrUnknownLoop is returned by RunLoop for an id the engine doesn't hold.
	ErrUnknownLoop = errors.New("scheduler: unknown loop")
	// ErrRateLimited is returned when an agent already has its maximum
	// number of loops in flight.
	ErrRateLimited = errors.New("scheduler: agent rate limited")
	// ErrAlreadyRunning is returned by a second concurrent call to Run.
	ErrAlreadyRunning = errors.New("scheduler: already running")
)

// DefaultMaxConcurrentPerAgent caps in-flight runs per agent.
const DefaultMaxConcurrentPerAgent = 3

// Options configures a Scheduler.
type Options struct {
	Engine   *campaign.Engine
	Notifier notify.Notifier
	Logger   *zap.Logger
	// Agents overrides the built-in agents, keyed by name.
	Agents     map[campaign.AgentName]Agent
	Thresholds *Thresholds
	// MaxConcurrentPerAgent defaults to DefaultMaxConcurrentPerAgent.
	MaxConcurrentPerAgent int
	// DigestSpec schedules a loop activity digest, e.g. "@daily". Empty
	// disables it.
	DigestSpec string
	Now        func() time.Time
}

type entry struct {
	spec string
	id   cron.EntryID
}

// Scheduler keeps one cron entry per active loop in step with the engine.
type Scheduler struct {
	engine   *campaign.Engine
	notifier notify.Notifier
	log      *zap.Logger
	agents   map[campaign.AgentName]Agent
	th       Thresholds
	maxPer   int
	digest   string
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	entries map[string]entry
	running map[campaign.AgentName]int
}

// New returns a Scheduler. Engine is required.
func New(opts Options) (*Scheduler, error) {
	if opts.Engine == nil {
		return nil, errors.New("scheduler: engine is required")
	}
	if opts.Thresholds != nil {
		if err := opts.Thresholds.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.DigestSpec != "" {
		if _, err := cronParser.Parse(opts.DigestSpec); err != nil {
			return nil, fmt.Errorf("scheduler: digest spec %q: %w", opts.DigestSpec, err)
		}
	}
	s := &Scheduler{
		engine:   opts.Engine,
		notifier: opts.Notifier,
		log:      opts.Logger,
		agents:   opts.Agents,
		th:       DefaultThresholds(),
		maxPer:   opts.MaxConcurrentPerAgent,
		digest:   opts.DigestSpec,
		now:      opts.Now,
		running:  make(map[campaign.AgentName]int),
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.agents == nil {
		s.agents = DefaultAgents()
	}
	if opts.Thresholds != nil {
		s.th = *opts.Thresholds
	}
	if s.maxPer <= 0 {
		s.maxPer = DefaultMaxConcurrentPerAgent
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Run schedules every active loop and blocks until ctx is cancelled. Loop
// changes in the engine reschedule as they happen. On return no job is
// still executing.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	cl := cronLogger{s: s.log.Sugar()}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.ctx = ctx
	s.entries = make(map[string]entry)
	c := s.cron
	s.mu.Unlock()

	if s.digest != "" {
		if _, err := c.AddFunc(s.digest, func() {
			if _, err := s.SendDigest(ctx); err != nil {
				s.log.Warn("send digest", zap.Error(err))
			}
		}); err != nil {
			s.log.Error("schedule digest", zap.String("spec", s.digest), zap.Error(err))
		}
	}
	s.Sync()
	unsubscribe := s.engine.Subscribe(func(ch campaign.Change) {
		if slices.Contains(ch.Stores, campaign.StoreLoops) {
			s.Sync()
		}
	})
	c.Start()
	s.log.Info("scheduler started", zap.Int("loops", len(c.Entries())))

	<-ctx.Done()
	unsubscribe()
	<-c.Stop().Done()

	s.mu.Lock()
	s.cron = nil
	s.entries = nil
	s.mu.Unlock()
	s.log.Info("scheduler stopped")
	return nil
}

// Sync reconciles cron entries with the engine's active loops. It is a
// no-op while the scheduler isn't running.
func (s *Scheduler) Sync() {
	loops := s.engine.ActiveLoops()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}

	want := make(map[string]string, len(loops))
	for _, l := range loops {
		if spec := cronSpec(l.Interval); spec != "" {
			want[l.ID] = spec
		}
	}
	for id, e := range s.entries {
		if want[id] != e.spec {
			s.cron.Remove(e.id)
			delete(s.entries, id)
		}
	}
	ctx := s.ctx
	for id, spec := range want {
		if _, ok := s.entries[id]; ok {
			continue
		}
		loopID := id
		eid, err := s.cron.AddFunc(spec, func() {
			if _, err := s.RunLoop(ctx, loopID); err != nil {
				s.log.Warn("loop run skipped", zap.String("loop", loopID), zap.Error(err))
			}
		})
		if err != nil {
			s.log.Error("schedule loop", zap.String("loop", loopID), zap.String("spec", spec), zap.Error(err))
			continue
		}
		s.entries[loopID] = entry{spec: spec, id: eid}
	}
}

// Scheduled returns the ids of loops that currently have a cron entry.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Scheduler) acquire(agent campaign.AgentName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[agent] >= s.maxPer {
		return false
	}
	s.running[agent]++
	return true
}

func (s *Scheduler) release(agent campaign.AgentName) {
	s.mu.Lock()
	s.running[agent]--
	s.mu.Unlock()
}

// RunLoop executes one loop immediately: its agent analyses the campaign,
// the suggestions it makes are queued, and a LoopEvent records the outcome.
// Disabled loops are not run and return a zero event.
func (s *Scheduler) RunLoop(ctx context.Context, id string) (campaign.LoopEvent, error) {
	l, ok := s.engine.GetLoop(id)
	if !ok {
		return campaign.LoopEvent{}, fmt.Errorf("%w: %s", ErrUnknownLoop, id)
	}
	if l.Status == campaign.LoopDisabled {
		return campaign.LoopEvent{}, nil
	}
	agent, ok := s.agents[l.Agent]
	if !ok {
		return campaign.LoopEvent{}, fmt.Errorf("scheduler: no agent %q for loop %s", l.Agent, id)
	}
	if !s.acquire(l.Agent) {
		return campaign.LoopEvent{}, fmt.Errorf("%w: %s", ErrRateLimited, l.Agent)
	}
	defer s.release(l.Agent)

	if !s.engine.BeginLoopRun(id) {
		// Disabled or removed since it was looked up.
		return campaign.LoopEvent{}, nil
	}

	start := s.now()
	view := View{
		Timeline: s.engine.Timeline(),
		Cards:    s.engine.Cards().Cards,
		Pending:  s.engine.PendingSuggestions(),
		Now:      start,
	}
	suggestions, msg, runErr := invoke(agent, view, s.th)

	result := campaign.LoopResult{Success: runErr == nil, Message: msg}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	for _, sg := range suggestions {
		sg.ID = s.engine.AddLoopSuggestion(sg)
		result.SuggestionsGenerated++
		if sg.Priority == campaign.PriorityHigh {
			s.publish(ctx, sg)
		}
	}

	if len(suggestions) > 0 {
		s.remember(id, l.Agent, msg, suggestions)
	}

	end := s.now()
	result.ExecutionTimeMs = end.Sub(start).Milliseconds()
	ev := s.engine.AddLoopEvent(campaign.LoopEvent{LoopID: id, Agent: l.Agent, Result: result})

	if !s.engine.FinishLoopRun(id, runErr != nil, end, nextRun(cronSpec(l.Interval), end)) {
		s.log.Debug("loop disabled or removed during run", zap.String("loop", id))
	}
	s.RefreshMetrics()

	s.log.Debug("loop ran",
		zap.String("loop", id),
		zap.String("agent", string(l.Agent)),
		zap.Bool("success", result.Success),
		zap.Int("suggestions", result.SuggestionsGenerated),
	)
	return ev, nil
}

// memoryTypes maps each agent onto the kind of memory its findings make.
var memoryTypes = map[campaign.AgentName]campaign.MemoryType{
	campaign.AgentScout:   campaign.MemoryPattern,
	campaign.AgentCoach:   campaign.MemoryPattern,
	campaign.AgentTracker: campaign.MemoryFact,
	campaign.AgentInsight: campaign.MemoryEmotion,
}

// remember records a run's findings as a memory linked to its loop. Runs
// with a high-priority suggestion are remembered as more important.
func (s *Scheduler) remember(loopID string, agent campaign.AgentName, msg string, suggestions []campaign.LoopSuggestion) {
	typ, ok := memoryTypes[agent]
	if !ok {
		typ = campaign.MemoryReflection
	}
	importance := campaign.DefaultImportance
	kinds := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.Priority == campaign.PriorityHigh {
			importance = campaign.DefaultImportance + 1
		}
		kinds = append(kinds, string(sg.Type))
	}
	mem := s.engine.AddMemory(campaign.MemorySpec{
		Agent:      agent,
		Type:       typ,
		Title:      msg,
		Importance: importance,
		Content:    map[string]any{"suggestions": len(suggestions), "types": kinds},
	})
	s.engine.AddMemoryLink(mem, campaign.EntityLoop, loopID)
}

// invoke runs agent, turning a panic into an error.
func invoke(agent Agent, v View, th Thresholds) (out []campaign.LoopSuggestion, msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, msg = nil, "agent failed"
			err = fmt.Errorf("scheduler: agent panic: %v", r)
		}
	}()
	out, msg = agent(v, th)
	return out, msg, nil
}

func (s *Scheduler) publish(ctx context.Context, sg campaign.LoopSuggestion) {
	n := notify.Notice{Campaign: s.engine.Meta().Name, Suggestion: sg}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("notify suggestion", zap.String("suggestion", sg.ID), zap.Error(err))
	}
}

// RefreshMetrics recomputes loop metrics from the engine's loops and event
// history.
func (s *Scheduler) RefreshMetrics() {
	st := s.engine.Loops()
	s.engine.SetLoopMetrics(computeMetrics(st.Loops, st.LoopEvents, s.now()))
}
