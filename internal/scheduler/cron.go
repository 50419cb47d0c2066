package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/campaignyard/internal/campaign"
	"go.uber.org/zap"
)

// cronParser accepts the 5-field form plus descriptors such as "@every 5m".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronSpec maps a loop interval to a cron spec, or "" if the interval is
// unknown.
func cronSpec(i campaign.LoopInterval) string {
	switch i {
	case campaign.Every5Minutes:
		return "@every 5m"
	case campaign.Every15Minutes:
		return "@every 15m"
	case campaign.Hourly:
		return "@every 1h"
	case campaign.Daily:
		return "@daily"
	}
	return ""
}

// nextRun returns the first fire time of spec after from. The zero time is
// returned for an unparsable spec.
func nextRun(spec string, from time.Time) time.Time {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(from)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
