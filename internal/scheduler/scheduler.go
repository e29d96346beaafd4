package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const lockTTL = 2 * time.Minute

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Job is a periodic sweep. Run returns how many items it handled.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (int, error)
}

// Scheduler runs sweeps on cron specs. When a redis client is set, each run
// takes a per-job lock so only one instance sweeps at a time.
type Scheduler struct {
	log    *logrus.Logger
	redis  *redis.Client
	loc    *time.Location
	jobs   []Job
	cron   *cron.Cron
	cancel context.CancelFunc
}

func New(log *logrus.Logger, redisClient *redis.Client, loc *time.Location, jobs ...Job) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		log:   log,
		redis: redisClient,
		loc:   loc,
		jobs:  jobs,
	}
}

// Start registers every job and starts the cron loop. An invalid spec fails
// the whole start so a misconfiguration is caught at boot.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.log))),
	)
	for _, job := range s.jobs {
		job := job
		if _, err := c.AddFunc(job.Spec, func() { s.runOnce(runCtx, job) }); err != nil {
			cancel()
			return fmt.Errorf("schedule %s with %q: %w", job.Name, job.Spec, err)
		}
		s.log.Infof("Scheduled job %s: %s", job.Name, job.Spec)
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}

	release, acquired := s.lock(ctx, job.Name)
	if !acquired {
		s.log.Debugf("Job %s skipped: another instance holds the lock", job.Name)
		return
	}
	defer release()

	started := time.Now()
	count, err := job.Run(ctx)
	if err != nil {
		s.log.Warnf("Job %s failed: %+v", job.Name, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"job":      job.Name,
		"handled":  count,
		"duration": time.Since(started).String(),
	}).Info("Job finished")
}

func (s *Scheduler) lock(ctx context.Context, name string) (func(), bool) {
	if s.redis == nil {
		return func() {}, true
	}

	key := "scheduler:lock:" + name
	token := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		s.log.Warnf("Job %s lock attempt failed: %+v", name, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	return func() {
		// The run context may be cancelled by now; the release must still go out.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, s.redis, []string{key}, token).Err(); err != nil {
			s.log.Warnf("Job %s unlock failed: %+v", name, err)
		}
	}, true
}
