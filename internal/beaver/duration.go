package beaver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnparseableDuration is returned when a trigger input carries no usable
// number of seconds.
var ErrUnparseableDuration = errors.New("duration cannot be parsed")

// ParseNumber converts raw into seconds. Surrounding whitespace is ignored
// and an empty input counts as zero. NaN is never returned.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableDuration, raw)
	}
	return v, nil
}

// ParseBusySeconds reads raw as a number and, failing that, as the base64
// encoding of a number. Blob names and queue messages use this form.
func ParseBusySeconds(raw string) (float64, error) {
	if v, err := ParseNumber(raw); err == nil {
		return v, nil
	}

	decoded, err := decodeBase64(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is neither a number nor base64: %v", ErrUnparseableDuration, raw, err)
	}

	v, err := ParseNumber(decoded)
	if err != nil {
		return 0, fmt.Errorf("%w: %q decodes to %q", ErrUnparseableDuration, raw, decoded)
	}
	return v, nil
}

// decodeBase64 accepts standard base64 with or without padding and with
// embedded whitespace.
func decodeBase64(raw string) (string, error) {
	s := strings.Join(strings.Fields(raw), "")
	if len(s)%4 == 0 {
		s = strings.TrimSuffix(s, "=")
		s = strings.TrimSuffix(s, "=")
	}

	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
