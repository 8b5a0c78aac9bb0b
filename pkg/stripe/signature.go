package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
)

var (
	// ErrMissingHeader is returned when the signature header is absent or empty.
	ErrMissingHeader = errors.New("stripe signature header is missing")
	// ErrMalformedHeader is returned when the header cannot be parsed into a
	// timestamp and at least one v1 signature.
	ErrMalformedHeader = errors.New("stripe signature header is malformed")
	// ErrNoMatch is returned when no v1 signature matches the expected digest.
	ErrNoMatch = errors.New("stripe signature does not match payload")
	// ErrStale is returned when the signed timestamp falls outside the
	// accepted tolerance window.
	ErrStale = errors.New("stripe signature timestamp is outside tolerance")
)

// VerifySignature authenticates a webhook payload against the Stripe-Signature
// header scheme (t=<unix>,v1=<hex hmac-sha256 of "<unix>.<payload>">). The
// timestamp must be within tolerance of now, counting both directions; a skew
// of exactly tolerance is still accepted. On success the payload is decoded
// into a stripe.Event.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) (*stripe.Event, error) {
	if strings.TrimSpace(header) == "" {
		return nil, ErrMissingHeader
	}

	ts, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	expected := computeSignature(ts, payload, secret)
	matched := false
	for _, sig := range signatures {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			matched = true
		}
	}
	if !matched {
		return nil, ErrNoMatch
	}

	if tolerance > 0 {
		signedAt := time.Unix(ts, 0)
		skew := now.Sub(signedAt)
		if skew < 0 {
			skew = -skew
		}
		if skew > tolerance {
			return nil, ErrStale
		}
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, errors.New("webhook payload is not valid json")
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		ts         int64
		tsSeen     bool
		signatures []string
	)
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return 0, nil, ErrMalformedHeader
		}
		switch parts[0] {
		case "t":
			parsed, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, ErrMalformedHeader
			}
			ts = parsed
			tsSeen = true
		case "v1":
			if parts[1] != "" {
				signatures = append(signatures, parts[1])
			}
		default:
			// Unknown schemes (v0 etc) are ignored per the header contract.
		}
	}
	if !tsSeen || len(signatures) == 0 {
		return 0, nil, ErrMalformedHeader
	}
	return ts, signatures, nil
}

func computeSignature(ts int64, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
