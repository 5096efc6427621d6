package services

import (
	"testing"
)

func TestComputeChecksumDeterministic(t *testing.T) {
	payload := map[string]interface{}{
		"merchantTransactionId": "TXN_1_abc",
		"amount":                float64(50000),
		"status":                "PAYMENT_SUCCESS",
	}

	first, err := ComputeChecksum(payload, "secret")
	if err != nil {
		t.Fatalf("ComputeChecksum returned error: %v", err)
	}
	second, err := ComputeChecksum(payload, "secret")
	if err != nil {
		t.Fatalf("ComputeChecksum returned error: %v", err)
	}

	if first != second {
		t.Errorf("digest not deterministic: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(first))
	}
}

func TestVerifyChecksum(t *testing.T) {
	base := map[string]interface{}{
		"merchantTransactionId": "TXN_1_abc",
		"transactionId":         "GW123",
		"status":                "PAYMENT_SUCCESS",
	}

	attach := func(payload map[string]interface{}, key string) map[string]interface{} {
		digest, err := ComputeChecksum(payload, key)
		if err != nil {
			t.Fatalf("ComputeChecksum returned error: %v", err)
		}
		signed := make(map[string]interface{}, len(payload)+1)
		for k, v := range payload {
			signed[k] = v
		}
		signed[ChecksumField] = digest
		return signed
	}

	tests := []struct {
		name     string
		payload  map[string]interface{}
		key      string
		expected bool
	}{
		{
			name:     "valid digest",
			payload:  attach(base, "secret"),
			key:      "secret",
			expected: true,
		},
		{
			name: "mutated field after signing",
			payload: func() map[string]interface{} {
				signed := attach(base, "secret")
				signed["status"] = "PAYMENT_ERROR"
				return signed
			}(),
			key:      "secret",
			expected: false,
		},
		{
			name:     "wrong key",
			payload:  attach(base, "secret"),
			key:      "other",
			expected: false,
		},
		{
			name:     "missing checksum field",
			payload:  base,
			key:      "secret",
			expected: false,
		},
		{
			name: "empty checksum field",
			payload: map[string]interface{}{
				"merchantTransactionId": "TXN_1_abc",
				ChecksumField:           "",
			},
			key:      "secret",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyChecksum(tt.payload, tt.key); got != tt.expected {
				t.Errorf("VerifyChecksum() = %v; want %v", got, tt.expected)
			}
		})
	}
}

func TestVerifyChecksumDoesNotMutatePayload(t *testing.T) {
	payload := map[string]interface{}{
		"merchantTransactionId": "TXN_1_abc",
		ChecksumField:           "deadbeef",
	}

	VerifyChecksum(payload, "secret")

	if _, ok := payload[ChecksumField]; !ok {
		t.Error("VerifyChecksum removed the checksum field from the payload")
	}
}
