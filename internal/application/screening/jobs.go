package screening

import (
	"context"
	"time"

	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// Job status label values.
const (
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobMalformed = "malformed"
	JobSkipped   = "skipped"
)

// JobSource is the Source recorded on result envelopes.
const JobSource = "keyip-worker"

// JobProcessorConfig configures a JobProcessor.
type JobProcessorConfig struct {
	ResultTopic string
	// LockTTL bounds how long one job may hold its lock.
	LockTTL time.Duration
}

// JobProcessor turns screening job records into screening result records.
// Only a failure to publish the result is returned to the consumer; a job
// that cannot be decoded or screened is answered or dropped, never retried.
type JobProcessor struct {
	svc       Service
	publisher kafka.Publisher
	locks     *redis.LockFactory
	libraries minio.LibraryRepository
	cfg       JobProcessorConfig
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// JobOption configures a JobProcessor.
type JobOption func(*JobProcessor)

// WithJobLocks serializes processing of one job ID across workers.
func WithJobLocks(f *redis.LockFactory) JobOption {
	return func(p *JobProcessor) { p.locks = f }
}

// WithLibraries enables library jobs.
func WithLibraries(repo minio.LibraryRepository) JobOption {
	return func(p *JobProcessor) { p.libraries = repo }
}

// WithJobMetrics records job counts and durations.
func WithJobMetrics(m *prometheus.AppMetrics) JobOption {
	return func(p *JobProcessor) { p.metrics = m }
}

// NewJobProcessor creates a processor publishing results through publisher.
func NewJobProcessor(svc Service, publisher kafka.Publisher, cfg JobProcessorConfig, logger logging.Logger, opts ...JobOption) *JobProcessor {
	if cfg.ResultTopic == "" {
		cfg.ResultTopic = kafka.TopicScreeningResults
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	p := &JobProcessor{
		svc:       svc,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.Named("jobs"),
		metrics:   prometheus.NewNopAppMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle is a kafka.MessageHandler.
func (p *JobProcessor) Handle(ctx context.Context, msg *kafka.Message) error {
	start := time.Now()
	log := p.logger.With(logging.Int64("offset", msg.Offset), logging.Int("partition", msg.Partition))

	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		log.Warn("dropping undecodable job", logging.Err(err))
		prometheus.RecordJob(p.metrics, JobMalformed, time.Since(start))
		return nil
	}
	if env.EventType != kafka.EventScreeningRequested {
		log.Debug("ignoring event", logging.String("event_type", env.EventType))
		return nil
	}
	var job kafka.ScreeningJobPayload
	if err := env.DecodePayload(&job); err != nil || job.JobID == "" {
		if err == nil {
			err = errors.InvalidParam("job_id is required")
		}
		log.Warn("dropping malformed job", logging.String("event_id", env.EventID), logging.Err(err))
		prometheus.RecordJob(p.metrics, JobMalformed, time.Since(start))
		return nil
	}
	log = log.With(logging.String("job_id", job.JobID))

	if p.locks != nil {
		m := p.locks.NewMutex("job:"+job.JobID, redis.WithLockTTL(p.cfg.LockTTL))
		ok, err := m.TryLock(ctx)
		switch {
		case err != nil:
			log.Warn("job lock unavailable, processing unlocked", logging.Err(err))
		case !ok:
			log.Info("job already in progress elsewhere")
			prometheus.RecordJob(p.metrics, JobSkipped, time.Since(start))
			return nil
		default:
			defer func() {
				if err := m.Unlock(context.WithoutCancel(ctx)); err != nil {
					log.Warn("failed to release job lock", logging.Err(err))
				}
			}()
		}
	}

	p.metrics.ActiveJobs.WithLabelValues().Inc()
	result := p.run(ctx, &job)
	p.metrics.ActiveJobs.WithLabelValues().Dec()

	if err := p.publish(ctx, result); err != nil {
		log.Error("failed to publish result", logging.Err(err))
		return err
	}

	status := JobCompleted
	if result.Error != "" {
		status = JobFailed
	}
	prometheus.RecordJob(p.metrics, status, time.Since(start))
	log.Info("job finished", logging.String("status", status), logging.Duration("elapsed", time.Since(start)))
	return nil
}

// run screens the job and always returns a result; failures are carried in
// its Error fields.
func (p *JobProcessor) run(ctx context.Context, job *kafka.ScreeningJobPayload) *kafka.ScreeningResultPayload {
	out := &kafka.ScreeningResultPayload{JobID: job.JobID, SMILES: job.SMILES}
	var err error
	if job.Library != nil {
		out.Hits, err = p.runLibrary(ctx, job)
	} else {
		out.Outcomes, err = p.runScreen(ctx, job)
	}
	if err != nil {
		out.Error = err.Error()
		out.ErrorCode = string(errors.GetCode(err))
	}
	out.CompletedAt = time.Now().UTC()
	return out
}

func (p *JobProcessor) runScreen(ctx context.Context, job *kafka.ScreeningJobPayload) ([]kafka.PatternOutcome, error) {
	res, err := p.svc.Screen(ctx, &ScreenInput{SMILES: job.SMILES, Patterns: job.Patterns})
	if err != nil {
		return nil, err
	}
	outcomes := make([]kafka.PatternOutcome, len(res.Outcomes))
	for i, o := range res.Outcomes {
		outcomes[i] = kafka.PatternOutcome{Pattern: o.Pattern, Matched: o.Matched, Atoms: o.Atoms, Error: o.Error}
	}
	return outcomes, nil
}

func (p *JobProcessor) runLibrary(ctx context.Context, job *kafka.ScreeningJobPayload) ([]kafka.LibraryHitPayload, error) {
	if p.libraries == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "compound libraries are not configured")
	}
	if len(job.Patterns) != 1 {
		return nil, errors.InvalidParam("a library job takes exactly one pattern")
	}
	res, err := p.svc.SearchLibrary(ctx, &SearchInput{
		Pattern: job.Patterns[0],
		Source:  NewObjectSource(p.libraries, job.Library.Bucket, job.Library.Object),
	})
	if err != nil {
		return nil, err
	}
	hits := make([]kafka.LibraryHitPayload, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = kafka.LibraryHitPayload{Index: h.Index, Name: h.Name, SMILES: h.SMILES}
	}
	return hits, nil
}

func (p *JobProcessor) publish(ctx context.Context, result *kafka.ScreeningResultPayload) error {
	env, err := kafka.NewEventEnvelope(kafka.EventScreeningCompleted, JobSource, result)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(p.cfg.ResultTopic, result.JobID)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, msg)
}

//Personal.AI order the ending
