// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is a named callback fired on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      func()
}

// Scheduler fires housekeeping jobs such as the session reaper.
type Scheduler struct {
	jobs []Job
	cron *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field, plus descriptors like
// "@every 5m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs: jobs,
		cron: cron.New(cron.WithParser(cronParser)),
	}
}

// Validate checks a schedule expression without registering it.
func Validate(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Start registers every job with a schedule and starts the cron ticker.
// Jobs with an invalid schedule are logged and skipped.
func (s *Scheduler) Start() error {
	attempted, registered := 0, 0
	for _, job := range s.jobs {
		if job.Schedule == "" || job.Run == nil {
			continue
		}
		attempted++
		name, run := job.Name, job.Run
		_, err := s.cron.AddFunc(job.Schedule, func() {
			slog.Debug("cron firing job", "name", name)
			run()
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}
		registered++
		slog.Info("scheduled job", "name", job.Name, "schedule", job.Schedule)
	}
	if attempted > 0 && registered == 0 {
		return fmt.Errorf("no job could be scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop stops the cron ticker and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
