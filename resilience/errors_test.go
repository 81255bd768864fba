package resilience

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrors_Distinct(t *testing.T) {
	sentinels := []error{ErrCircuitOpen, ErrRateLimitExceeded, ErrBulkheadFull, ErrTimeout}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}

func TestIsCircuitOpen(t *testing.T) {
	if !IsCircuitOpen(ErrCircuitOpen) {
		t.Error("IsCircuitOpen(ErrCircuitOpen) = false")
	}
	if !IsCircuitOpen(fmt.Errorf("call: %w", ErrCircuitOpen)) {
		t.Error("IsCircuitOpen() = false for wrapped ErrCircuitOpen")
	}
	if IsCircuitOpen(errors.New("boom")) {
		t.Error("IsCircuitOpen() = true for unrelated error")
	}
	if IsCircuitOpen(nil) {
		t.Error("IsCircuitOpen(nil) = true")
	}
}

func TestConfigError_Message(t *testing.T) {
	err := configErr("MaxAttempts", "must be >= 1")

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("configErr() did not produce a *ConfigError")
	}
	if cfgErr.Field != "MaxAttempts" {
		t.Errorf("Field = %q, want MaxAttempts", cfgErr.Field)
	}
	if !strings.Contains(err.Error(), "MaxAttempts") || !strings.Contains(err.Error(), "must be >= 1") {
		t.Errorf("Error() = %q, want field and reason included", err.Error())
	}
}
