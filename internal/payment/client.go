// Package payment integrates the external payment gateway: intent creation
// at checkout and authenticity verification of payment confirmations.
package payment

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/nexushq/storefront-api/internal/domain/order"
)

var _ order.IntentCreator = (*Client)(nil)

// ClientConfig holds the gateway API credentials and endpoint.
type ClientConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
}

// Client is a minimal REST client for the payment gateway's order API.
type Client struct {
	http    *http.Client
	baseURL string
	keyID   string
	secret  string
}

// NewClient creates a gateway Client. The zero http.Client timeout is
// replaced with a conservative default so a stalled gateway cannot hold a
// checkout open indefinitely.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		keyID:   cfg.KeyID,
		secret:  cfg.KeySecret,
	}
}

// CreateIntent asks the gateway to open a payment of amountMinor minor
// currency units and returns the gateway's intent handle. The returned
// ClientKey is the public key id the frontend completes payment with.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string, notes map[string]string) (*order.PaymentIntent, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Int64(amountMinor) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(currency) })
		e.Field("receipt", func(e *jx.Encoder) {
			e.Str(fmt.Sprintf("order_%d", time.Now().UnixMilli()))
		})
		e.Field("notes", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for k, v := range notes {
					e.Field(k, func(e *jx.Encoder) { e.Str(v) })
				}
			})
		})
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "build intent request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read gateway response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("gateway returned %d: %s", resp.StatusCode, gatewayErrorDescription(body))
	}

	intent, err := decodeIntent(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode gateway response")
	}
	intent.ClientKey = c.keyID
	return intent, nil
}

func decodeIntent(body []byte) (*order.PaymentIntent, error) {
	intent := &order.PaymentIntent{}
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := d.Str()
			intent.ID = v
			return err
		case "amount":
			v, err := d.Int64()
			intent.AmountMinor = v
			return err
		case "currency":
			v, err := d.Str()
			intent.Currency = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, errors.New("gateway response has no intent id")
	}
	return intent, nil
}

// gatewayErrorDescription extracts error.description from a gateway error
// body, falling back to a generic message for unparseable payloads.
func gatewayErrorDescription(body []byte) string {
	desc := "payment initiation failed"
	d := jx.DecodeBytes(body)
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "error" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "description" {
				return d.Skip()
			}
			v, err := d.Str()
			if err == nil && v != "" {
				desc = v
			}
			return err
		})
	})
	return desc
}
