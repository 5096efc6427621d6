package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ChecksumField is the payload key carrying the keyed digest
const ChecksumField = "checksum"

// ComputeChecksum serializes payload to canonical JSON and returns the
// HMAC-SHA256 digest under key as lowercase hex. json.Marshal sorts map
// keys, which gives a stable serialization for the same logical payload.
func ComputeChecksum(payload map[string]interface{}, key string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyChecksum extracts the checksum field from payload, recomputes the
// digest over the remaining fields and compares in constant time. The
// payload map is not modified.
func VerifyChecksum(payload map[string]interface{}, key string) bool {
	provided, ok := payload[ChecksumField].(string)
	if !ok || provided == "" {
		return false
	}

	rest := make(map[string]interface{}, len(payload)-1)
	for k, v := range payload {
		if k == ChecksumField {
			continue
		}
		rest[k] = v
	}

	expected, err := ComputeChecksum(rest, key)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(provided), []byte(expected))
}
