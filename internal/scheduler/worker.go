package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nexushq/storefront-api/internal/domain/coupon"
)

// Worker consumes scheduler events and executes them once their DeliverAt
// instant has passed. Per-key ordering means waiting on one deferred event
// never starves a different key's partition beyond its own backlog.
type Worker struct {
	reader  *kafka.Reader
	coupons coupon.Repository
	now     func() time.Time
}

// NewWorker creates a Worker consuming the scheduler topic as part of the
// given consumer group.
func NewWorker(brokers []string, topic, groupID string, coupons coupon.Repository) *Worker {
	return &Worker{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		coupons: coupons,
		now:     time.Now,
	}
}

// Run consumes events until the context is cancelled. Malformed or unknown
// events are committed and skipped; handler failures are logged and the
// message is committed anyway, since the scheduler bus is best-effort.
func (w *Worker) Run(ctx context.Context) error {
	lg := zctx.From(ctx)

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return errors.Wrap(err, "fetch message")
		}

		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			lg.Warn("malformed scheduler event", zap.Error(err))
			if err := w.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, "commit message")
			}
			continue
		}

		if err := w.waitUntilDue(ctx, ev); err != nil {
			return err
		}

		if err := w.handle(ctx, ev); err != nil {
			lg.Error("handle scheduler event",
				zap.String("event", ev.Name),
				zap.Error(err),
			)
		}

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}

// Close releases the underlying consumer.
func (w *Worker) Close() error {
	return w.reader.Close()
}

func (w *Worker) waitUntilDue(ctx context.Context, ev Event) error {
	if ev.DeliverAt == nil {
		return nil
	}
	delay := ev.DeliverAt.Sub(w.now())
	if delay <= 0 {
		return nil
	}

	zctx.From(ctx).Info("waiting for deferred event",
		zap.String("event", ev.Name),
		zap.Duration("delay", delay),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Worker) handle(ctx context.Context, ev Event) error {
	lg := zctx.From(ctx)

	switch ev.Name {
	case EventCouponExpired:
		var payload CouponExpiredPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return errors.Wrap(err, "decode payload")
		}

		err := w.coupons.Delete(ctx, payload.Code)
		switch {
		case errors.Is(err, coupon.ErrNotFound):
			// Already deleted by an admin; nothing to do.
			lg.Debug("expired coupon already gone", zap.String("code", payload.Code))
			return nil
		case err != nil:
			return errors.Wrapf(err, "delete coupon %q", payload.Code)
		}

		lg.Info("deleted expired coupon", zap.String("code", payload.Code))
		return nil

	default:
		lg.Debug("ignoring unknown event", zap.String("event", ev.Name))
		return nil
	}
}
