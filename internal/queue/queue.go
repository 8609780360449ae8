package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CampaignSendsTopic carries asynchronous campaign send requests.
const CampaignSendsTopic = "campaign_sends"

const defaultMaxRetries = 3

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// SendJob asks a worker to run one campaign send.
type SendJob struct {
	CampaignID string `json:"campaign_id"`
}

// DecodeSendJob accepts the in-memory and the broker forms of a job.
func DecodeSendJob(payload any) (SendJob, error) {
	switch p := payload.(type) {
	case SendJob:
		return p, nil
	case *SendJob:
		if p == nil {
			return SendJob{}, errors.New("nil send job")
		}
		return *p, nil
	case []byte:
		var job SendJob
		if err := json.Unmarshal(p, &job); err != nil {
			return SendJob{}, fmt.Errorf("decoding send job: %w", err)
		}
		return job, nil
	case string:
		return SendJob{CampaignID: p}, nil
	default:
		return SendJob{}, fmt.Errorf("unexpected payload type %T", payload)
	}
}

// PermanentError marks a handler failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the queue drops the job instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func isPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// InMemoryQueue is an in-process queue with retry and linear backoff.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]func(payload any) error
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *slog.Logger) *InMemoryQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		maxRetries: defaultMaxRetries,
		backoff:    500 * time.Millisecond,
		logger:     logger,
	}
}

// WithBackoff overrides the base retry delay.
func (q *InMemoryQueue) WithBackoff(d time.Duration) *InMemoryQueue {
	q.backoff = d
	return q
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{
			Topic:      topic,
			Payload:    payload,
			MaxRetries: q.maxRetries,
		}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()

	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			q.logger.Debug("job processed", "topic", job.Topic)
			return
		}
		if isPermanent(err) {
			q.logger.Warn("job dropped", "topic", job.Topic, "error", err)
			return
		}

		job.RetryCount++
		q.logger.Warn("job failed", "topic", job.Topic, "attempt", job.RetryCount, "max_retries", job.MaxRetries, "error", err)

		if job.RetryCount > job.MaxRetries {
			q.logger.Error("job permanently failed", "topic", job.Topic, "attempts", job.RetryCount)
			return
		}

		time.Sleep(time.Duration(job.RetryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job finished, including retries.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

// Drain waits for in-flight jobs until ctx is done.
func (q *InMemoryQueue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining queue: %w", ctx.Err())
	}
}
