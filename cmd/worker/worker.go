package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	appkafka "example.com/minitweet/internal/broker"
	"example.com/minitweet/internal/logger"
	"example.com/minitweet/internal/metrics"
	"example.com/minitweet/internal/models"
	"example.com/minitweet/internal/store"
	"github.com/gocql/gocql"
	"github.com/segmentio/kafka-go"
)

var logg = logger.New()

var errSelfActivity = errors.New("event has no recipient other than its actor")

// Worker consumes activity events from Kafka and records them in each recipient's
// activity log concurrently.
type Worker struct {
	store        store.StoreInterface
	reader       appkafka.KafkaReader
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(store store.StoreInterface, reader appkafka.KafkaReader, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	return &Worker{
		store:        store,
		reader:       reader,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.workerCount <= 0 {
		w.workerCount = 1
	}
	if w.jobQueueSize <= 0 {
		w.jobQueueSize = 10
	}

	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan kafka.Message, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- kafka.Message) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				if !waitWithContext(ctx, 50*time.Millisecond) {
					return
				}
				continue
			}

			select {
			case jobs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleTimeout caps a single store write while the queue drains.
const handleTimeout = 5 * time.Second

// processLoop drains the job queue. Each message gets its own context detached from
// ctx, so messages still queued when the read loop stops are recorded rather than
// failed with the shutdown cancellation.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan kafka.Message) {
	base := context.WithoutCancel(ctx)
	for msg := range jobs {
		mctx, cancel := context.WithTimeout(base, handleTimeout)
		observe(w.handle(mctx, msg))
		cancel()
	}
}

// handle decodes one event and appends it to the recipient's activity log.
func (w *Worker) handle(ctx context.Context, msg kafka.Message) error {
	ev, err := appkafka.DecodeEvent(msg)
	if err != nil {
		return fmt.Errorf("invalid JSON in Kafka message: %w", err)
	}
	return record(ctx, w.store, ev)
}

// record appends ev to the recipient's activity log.
func record(ctx context.Context, st store.StoreInterface, ev models.Event) error {
	if ev.TargetUserID == "" || ev.TargetUserID == ev.ActorID {
		return errSelfActivity
	}

	created := ev.Created
	if created.IsZero() {
		created = time.Now().UTC().Truncate(time.Millisecond)
	}

	return st.AddActivity(ctx, models.Activity{
		ID:        gocql.TimeUUID().String(),
		UserID:    ev.TargetUserID,
		Kind:      ev.Kind,
		ActorID:   ev.ActorID,
		ActorName: ev.ActorName,
		TweetID:   ev.TweetID,
		CreatedAt: created,
	})
}

func observe(err error) {
	switch {
	case err == nil:
		metrics.RecordActivity(true)
	case errors.Is(err, errSelfActivity):
		logg.Debug("worker", "Skipping self activity")
	default:
		metrics.RecordActivity(false)
		logg.Error("worker", "Failed to record activity", err)
	}
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down the Kafka reader and the store session.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}

	logg.Info("worker", "Closing store session")
	w.store.Close()
	return nil
}
