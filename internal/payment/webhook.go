package payment

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Gateway webhook event names this service reacts to. Anything else is
// acknowledged and ignored.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// WebhookEvent is the decoded subset of a gateway webhook this service
// cares about: the event name and the payment intent id it refers to.
type WebhookEvent struct {
	Name     string
	IntentID string
}

// Outcome maps the event taxonomy onto a payment result. handled is false
// for events outside the taxonomy; such events are acknowledged without
// touching any order.
func (e WebhookEvent) Outcome() (success, handled bool) {
	switch e.Name {
	case EventPaymentCaptured, EventOrderPaid:
		return true, true
	case EventPaymentFailed:
		return false, true
	default:
		return false, false
	}
}

// ParseWebhook extracts the event name and intent id from a raw webhook
// body. Payment events carry the intent id at payload.payment.entity.order_id,
// order events at payload.order.entity.id; all other fields are skipped
// without being materialized.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	d := jx.DecodeBytes(body)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "event":
			v, err := d.Str()
			ev.Name = v
			return err
		case "payload":
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				switch string(key) {
				case "payment":
					return entityField(d, "order_id", &ev.IntentID)
				case "order":
					return entityField(d, "id", &ev.IntentID)
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return WebhookEvent{}, errors.Wrap(err, "parse webhook body")
	}
	if ev.Name == "" {
		return WebhookEvent{}, errors.New("webhook body has no event")
	}
	return ev, nil
}

// entityField descends into {"entity": {...}} and captures one string field.
func entityField(d *jx.Decoder, field string, out *string) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "entity" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != field {
				return d.Skip()
			}
			v, err := d.Str()
			*out = v
			return err
		})
	})
}
