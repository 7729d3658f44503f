package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Daskott/safecircle/server/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrEmptyMessage     = errors.New("message is required")
	ErrInvalidRecipient = errors.New("recipient phone number cannot be empty")
)

// Sender delivers a single message to a single recipient
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Outcome is the result of one delivery attempt
type Outcome struct {
	Recipient string
	Err       error
}

// Report summarises a broadcast once every delivery attempt has settled.
// A nil Err on an outcome means the provider accepted the message,
// not that it was delivered.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) Attempted() int {
	return len(r.Outcomes)
}

func (r *Report) Failed() int {
	failed := 0
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	return failed
}

// Err combines the errors of all failed attempts, nil if none failed
func (r *Report) Err() error {
	var err error
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%v: %w", outcome.Recipient, outcome.Err))
		}
	}
	return err
}

type Broadcaster struct {
	sender  Sender
	timeout time.Duration
	metrics *Metrics
	logg    *zap.SugaredLogger
}

type Option func(*Broadcaster)

// WithTimeout bounds each delivery attempt
func WithTimeout(timeout time.Duration) Option {
	return func(b *Broadcaster) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(b *Broadcaster) {
		b.metrics = metrics
	}
}

func WithLogger(logg *zap.SugaredLogger) Option {
	return func(b *Broadcaster) {
		b.logg = logg
	}
}

func NewBroadcaster(sender Sender, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		sender:  sender,
		timeout: DefaultTimeout,
		logg:    logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Broadcast sends 'message' to every recipient concurrently & returns once all
// attempts have settled. A failed attempt never stops the others, and is only
// reported through the returned Report. An error is returned only for malformed
// input, in which case nothing is sent.
//
// An empty recipient list is a no-op.
func (b *Broadcaster) Broadcast(ctx context.Context, message string, recipients []string) (*Report, error) {
	if len(recipients) == 0 {
		b.logg.Info("No recipients provided, nothing to broadcast")
		return &Report{Outcomes: []Outcome{}}, nil
	}

	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	for _, recipient := range recipients {
		if strings.TrimSpace(recipient) == "" {
			return nil, ErrInvalidRecipient
		}
	}

	b.logg.Infof("Broadcasting message to %v recipient(s): %v", len(recipients), recipients)

	start := time.Now()
	outcomes := make([]Outcome, len(recipients))

	// Tasks never return an error, so one failure can't affect the rest
	group := errgroup.Group{}
	for i, recipient := range recipients {
		i, recipient := i, recipient
		group.Go(func() error {
			outcomes[i] = Outcome{Recipient: recipient, Err: b.send(ctx, recipient, message)}
			return nil
		})
	}
	group.Wait()

	report := &Report{Outcomes: outcomes}
	b.metrics.observeBroadcast(time.Since(start))

	if err := report.Err(); err != nil {
		b.logg.Errorf("%v of %v message(s) failed: %v", report.Failed(), report.Attempted(), err)
	}
	b.logg.Infof("All %v message(s) processed", report.Attempted())

	return report, nil
}

func (b *Broadcaster) send(ctx context.Context, recipient, message string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := b.sender.Send(ctx, recipient, message)
	b.metrics.observeDelivery(err)
	if err != nil {
		b.logg.Errorf("Failed to send message to %v: %v", recipient, err)
		return err
	}

	b.logg.Infof("Message sent to %v", recipient)
	return nil
}
