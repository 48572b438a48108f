package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier checks the authenticity of payment confirmations. Two secrets
// are in play: the API secret signs client-side confirmations over
// "intentID|paymentID", and a separate webhook secret signs raw webhook
// bodies. Verification always happens before any order state is touched.
type Verifier struct {
	apiSecret     []byte
	webhookSecret []byte
}

// NewVerifier creates a Verifier with the gateway's two signing secrets.
func NewVerifier(apiSecret, webhookSecret string) *Verifier {
	return &Verifier{
		apiSecret:     []byte(apiSecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// VerifyClient checks a client-side confirmation signature: hex-encoded
// HMAC-SHA256 over "intentID|paymentID" with the API secret. Comparison is
// constant time.
func (v *Verifier) VerifyClient(intentID, paymentID, signature string) bool {
	return verify(v.apiSecret, []byte(intentID+"|"+paymentID), signature)
}

// VerifyWebhook checks a webhook signature: hex-encoded HMAC-SHA256 over
// the raw request body with the webhook secret.
func (v *Verifier) VerifyWebhook(body []byte, signature string) bool {
	return verify(v.webhookSecret, body, signature)
}

func verify(secret, payload []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), provided)
}
