package printing

import (
	"fmt"
	"strings"

	"cafe/internal/pkg/errs"
)

// TransportKind identifies one way of getting a ticket onto paper.
type TransportKind int

const (
	UnknownTransport TransportKind = iota
	LocalNetwork
	DirectSerial
	CloudAPI
	ManualFallback
)

func getTransportStrings() map[TransportKind]string {
	return map[TransportKind]string{
		UnknownTransport: "unknown",
		LocalNetwork:     "local_network",
		DirectSerial:     "direct_serial",
		CloudAPI:         "cloud_api",
		ManualFallback:   "manual_fallback",
	}
}

// ParseTransportKind converts a wire name ("cloud_api", "cloud-api") into a TransportKind.
func ParseTransportKind(s string) (TransportKind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for kind, name := range getTransportStrings() {
		if kind != UnknownTransport && name == normalized {
			return kind, nil
		}
	}
	return UnknownTransport, errs.NewValueIsInvalidErrorWithCause("transport kind", fmt.Errorf("%q is not a known transport", s))
}

func (k TransportKind) String() string {
	if str, ok := getTransportStrings()[k]; ok {
		return str
	}
	return "unknown"
}

func (k TransportKind) Validate() error {
	if k <= UnknownTransport || k > ManualFallback {
		return errs.NewValueIsInvalidErrorWithCause("transport kind", fmt.Errorf("%d is not a valid transport", k))
	}
	return nil
}

// Priority orders transports in a fallback chain; lower goes first.
// The two on-premises transports come before the cloud API, and the
// human-confirmed fallback is always last.
func (k TransportKind) Priority() int {
	switch k {
	case LocalNetwork:
		return 0
	case DirectSerial:
		return 1
	case CloudAPI:
		return 2
	case ManualFallback:
		return 3
	default:
		return 99
	}
}
