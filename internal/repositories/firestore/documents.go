package firestore

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Monetary amounts are persisted as fixed-point strings so documents never
// accumulate binary floating point drift.
func encodeAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func decodeAmount(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode amount %s: %w", field, err)
	}
	return value, nil
}

func encodePageToken(token any) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodePageToken(encoded string, token any) error {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode page token: %w", err)
	}
	if err := json.Unmarshal(data, token); err != nil {
		return fmt.Errorf("decode page token json: %w", err)
	}
	return nil
}
