// Package queue delivers passcode emails from an in-process job queue served
// by a fixed pool of workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-api-otp/internal/domain"
	"github.com/go-api-otp/internal/infrastructure/smtp"
)

const sendTimeout = 30 * time.Second

var (
	ErrQueueFull = errors.New("delivery queue full")
	ErrClosed    = errors.New("delivery queue closed")
)

// Dispatcher accepts delivery jobs and sends them with a Mailer.
type Dispatcher struct {
	mailer smtp.Mailer
	jobs   chan domain.DeliveryJob

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines reading from a queue of size buffer.
func NewDispatcher(mailer smtp.Mailer, workers, buffer int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	d := &Dispatcher{
		mailer: mailer,
		jobs:   make(chan domain.DeliveryJob, buffer),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work(i)
	}
	return d
}

// Enqueue hands job to the workers without blocking.
func (d *Dispatcher) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued ones to be sent or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain delivery queue: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for job := range d.jobs {
		d.send(id, job)
	}
}

func (d *Dispatcher) send(worker int, job domain.DeliveryJob) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	startedAt := time.Now()
	if err := d.mailer.SendEmail(ctx, job.To, job.Subject, RenderBody(job)); err != nil {
		slog.Warn("passcode delivery failed", "worker", worker, "to", job.To, "elapsed", time.Since(startedAt), "err", err)
		return
	}
	slog.Info("passcode delivered", "worker", worker, "to", job.To, "elapsed", time.Since(startedAt))
}

// RenderBody is the plain-text email sent for a delivery job.
func RenderBody(job domain.DeliveryJob) string {
	expires := time.Unix(job.OTPExpiredAt, 0).UTC().Format("2006-01-02 15:04 MST")
	return fmt.Sprintf(`Hello!

Your verification code is:

    %s

This code expires at %s.

If you didn't request this email, you can safely ignore it.`, job.OTP, expires)
}
