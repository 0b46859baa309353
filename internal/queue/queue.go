package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Handler processes one delivered task payload. A nil return acknowledges the
// task; an error (or panic) leaves it for redelivery.
type Handler func(ctx context.Context, payload []byte) error

// Queue is a durable, at-least-once work queue backed by the queue_tasks
// table. Tasks survive process restarts; a claimed task holds a lease and
// becomes claimable again if its worker dies before acknowledging.
type Queue struct {
	db   *sql.DB
	cron *cron.Cron

	PollInterval  time.Duration
	LeaseDuration time.Duration
}

func New(db *sql.DB) *Queue {
	return &Queue{
		db:            db,
		cron:          cron.New(),
		PollInterval:  time.Second,
		LeaseDuration: 5 * time.Minute,
	}
}

// Enqueue durably inserts one task on the named queue.
func (q *Queue) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal task payload: %w", err)
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO queue_tasks (queue, payload) VALUES ($1, $2)`,
		queueName, data,
	)
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// ScheduleRecurring registers a cron-style recurring enqueue on the named
// queue. Triggers fire only after StartScheduler.
func (q *Queue) ScheduleRecurring(queueName, spec string, payload interface{}) error {
	_, err := q.cron.AddFunc(spec, func() {
		if err := q.Enqueue(context.Background(), queueName, payload); err != nil {
			log.Printf("[queue] recurring enqueue on %s failed: %v", queueName, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule recurring task: %w", err)
	}
	return nil
}

func (q *Queue) StartScheduler() {
	q.cron.Start()
}

func (q *Queue) StopScheduler() {
	q.cron.Stop()
}

type task struct {
	id          int64
	payload     []byte
	attempts    int
	maxAttempts int
}

// Worker runs a consumer loop on the named queue until ctx is cancelled. Each
// claimed task is handed to handler; success acknowledges it, failure releases
// it for redelivery with backoff until max attempts.
func (q *Queue) Worker(ctx context.Context, queueName string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		t, err := q.claim(ctx, queueName)
		if err != nil {
			log.Printf("[queue] claim on %s failed: %v", queueName, err)
			if !sleepWithContext(ctx, q.PollInterval) {
				return
			}
			continue
		}
		if t == nil {
			if !sleepWithContext(ctx, q.PollInterval) {
				return
			}
			continue
		}

		if err := q.invoke(ctx, handler, t.payload); err != nil {
			log.Printf("[queue] task %d on %s failed (attempt %d/%d): %v",
				t.id, queueName, t.attempts, t.maxAttempts, err)
			if releaseErr := q.release(ctx, t, err); releaseErr != nil {
				log.Printf("[queue] release task %d failed: %v", t.id, releaseErr)
			}
			continue
		}

		if err := q.ack(ctx, t.id); err != nil {
			log.Printf("[queue] ack task %d failed: %v", t.id, err)
		}
	}
}

// claim leases the oldest runnable task on the queue. Tasks whose lease has
// lapsed count as runnable again, which is the at-least-once redelivery path.
func (q *Queue) claim(ctx context.Context, queueName string) (*task, error) {
	var t task
	err := q.db.QueryRowContext(ctx,
		`UPDATE queue_tasks
		 SET status = 'running', attempts = attempts + 1,
		     locked_until = NOW() + ($2 * INTERVAL '1 second'), updated_at = NOW()
		 WHERE id = (
		     SELECT id FROM queue_tasks
		     WHERE queue = $1 AND run_at <= NOW()
		       AND (status = 'pending' OR (status = 'running' AND locked_until < NOW()))
		     ORDER BY id
		     FOR UPDATE SKIP LOCKED
		     LIMIT 1
		 )
		 RETURNING id, payload, attempts, max_attempts`,
		queueName, int(q.LeaseDuration.Seconds()),
	).Scan(&t.id, &t.payload, &t.attempts, &t.maxAttempts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return &t, nil
}

// invoke runs the handler, converting a panic into an error so one bad task
// cannot kill the worker loop.
func (q *Queue) invoke(ctx context.Context, handler Handler, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, payload)
}

func (q *Queue) ack(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE queue_tasks SET status = 'done', locked_until = NULL, updated_at = NOW() WHERE id = $1`,
		id,
	)
	return err
}

func (q *Queue) release(ctx context.Context, t *task, cause error) error {
	if t.attempts >= t.maxAttempts {
		_, err := q.db.ExecContext(ctx,
			`UPDATE queue_tasks SET status = 'dead', last_error = $2, locked_until = NULL, updated_at = NOW() WHERE id = $1`,
			t.id, cause.Error(),
		)
		return err
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE queue_tasks
		 SET status = 'pending', last_error = $2, locked_until = NULL,
		     run_at = NOW() + ($3 * INTERVAL '1 second'), updated_at = NOW()
		 WHERE id = $1`,
		t.id, cause.Error(), int(Backoff(t.attempts).Seconds()),
	)
	return err
}

// Backoff returns the redelivery delay after the given number of attempts,
// quadratic and capped at five minutes.
func Backoff(attempts int) time.Duration {
	d := time.Duration(attempts*attempts) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
