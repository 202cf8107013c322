package notify

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyServerKey = errors.New("application server key is empty")

// DecodeApplicationServerKey turns a base64url VAPID public key into the raw
// bytes PushManager.subscribe expects. Missing padding is restored and the
// URL-safe alphabet is translated before decoding.
func DecodeApplicationServerKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyServerKey
	}
	if rem := len(key) % 4; rem != 0 {
		key += strings.Repeat("=", 4-rem)
	}
	key = strings.NewReplacer("-", "+", "_", "/").Replace(key)
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decode application server key: %w", err)
	}
	return raw, nil
}
