package protocol

import (
	"fmt"
	"strings"

	"github.com/driftwood-systems/beacon/internal/errors"
)

// ValidateName validates a DNS name per RFC 1035 §3.1: total wire length
// ≤255 bytes, each label ≤63 bytes, labels drawn from [a-zA-Z0-9_-] with no
// leading/trailing hyphen, no empty labels.
func ValidateName(name string) error {
	if name == "" {
		return &errors.ValidationError{
			Field:   "name",
			Value:   name,
			Message: "name cannot be empty",
		}
	}

	name = strings.TrimSuffix(name, ".")
	labels := strings.Split(name, ".")

	wireLength := 1 // terminator
	for _, label := range labels {
		wireLength += 1 + len(label)
	}
	if wireLength > MaxNameLength {
		return &errors.ValidationError{
			Field:   "name",
			Value:   name,
			Message: fmt.Sprintf("name exceeds maximum length %d bytes (wire format: %d bytes) per RFC 1035 §3.1", MaxNameLength, wireLength),
		}
	}

	for i, label := range labels {
		if err := validateLabel(label, i); err != nil {
			return &errors.ValidationError{Field: "name", Value: name, Message: err.Error()}
		}
	}
	return nil
}

func validateLabel(label string, position int) error {
	if label == "" {
		return fmt.Errorf("empty label at position %d (consecutive dots)", position)
	}
	if len(label) > MaxLabelLength {
		return fmt.Errorf("label %q exceeds maximum length 63 bytes per RFC 1035 §3.1", label)
	}
	if strings.HasPrefix(label, "-") {
		return fmt.Errorf("label %q starts with hyphen (invalid per RFC 1035 §3.1)", label)
	}
	if strings.HasSuffix(label, "-") {
		return fmt.Errorf("label %q ends with hyphen (invalid per RFC 1035 §3.1)", label)
	}
	for i, ch := range label {
		if !isValidDNSChar(ch) {
			return fmt.Errorf("invalid character %q in label %q (position %d)", ch, label, i)
		}
	}
	return nil
}

// isValidDNSChar reports whether ch is valid in a DNS label. Underscore is
// not part of RFC 1035 but is required by DNS-SD service-type labels
// ("_http._tcp").
func isValidDNSChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' ||
		ch == '_'
}

// ValidateServiceType checks serviceType against the DNS-SD shape RFC 6763
// §7 requires, on top of the general name syntax ValidateName already
// enforces: the first two labels must be the service ("_http", "_ipp",
// ...) and protocol ("_tcp" or "_udp") labels, each "_"-prefixed, and the
// name must end in "local" or "local.".
func ValidateServiceType(serviceType string) error {
	if err := ValidateName(serviceType); err != nil {
		return err
	}

	trimmed := strings.TrimSuffix(serviceType, ".")
	labels := strings.Split(trimmed, ".")
	if len(labels) < 3 {
		return &errors.ValidationError{
			Field:   "serviceType",
			Value:   serviceType,
			Message: "service type must have the form _service._proto.local",
		}
	}
	if !strings.HasPrefix(labels[0], "_") || !strings.HasPrefix(labels[1], "_") {
		return &errors.ValidationError{
			Field:   "serviceType",
			Value:   serviceType,
			Message: "service and protocol labels must both start with an underscore (e.g. _http._tcp)",
		}
	}
	if !strings.EqualFold(labels[1], "_tcp") && !strings.EqualFold(labels[1], "_udp") {
		return &errors.ValidationError{
			Field:   "serviceType",
			Value:   serviceType,
			Message: "protocol label must be _tcp or _udp",
		}
	}
	if !strings.EqualFold(labels[len(labels)-1], "local") {
		return &errors.ValidationError{
			Field:   "serviceType",
			Value:   serviceType,
			Message: "service type must end in \"local\" or \"local.\"",
		}
	}
	return nil
}

// ValidateRecordType reports whether recordType is one this responder
// recognizes.
func ValidateRecordType(recordType uint16) error {
	if !RecordType(recordType).IsSupported() {
		return &errors.ValidationError{
			Field:   "recordType",
			Value:   recordType,
			Message: fmt.Sprintf("unsupported record type %d", recordType),
		}
	}
	return nil
}

// ValidateResponse checks that a response's header flags satisfy RFC 6762
// §18: QR=1, OPCODE=0, RCODE=0.
func ValidateResponse(flags uint16) error {
	qr := (flags & FlagQR) >> 15
	if qr != 1 {
		return &errors.ValidationError{
			Field:   "flags",
			Value:   flags,
			Message: fmt.Sprintf("QR bit is %d, expected 1 per RFC 6762 §18.2 (flags: 0x%04X)", qr, flags),
		}
	}
	opcode := (flags >> 11) & 0x0F
	if opcode != OpcodeQuery {
		return &errors.ValidationError{
			Field:   "flags",
			Value:   flags,
			Message: fmt.Sprintf("OPCODE is %d, expected %d per RFC 6762 §18.3 (flags: 0x%04X)", opcode, OpcodeQuery, flags),
		}
	}
	rcode := flags & 0x000F
	if rcode != RCodeNoError {
		return &errors.ValidationError{
			Field:   "flags",
			Value:   flags,
			Message: fmt.Sprintf("RCODE is %d, expected %d per RFC 6762 §18.11 (flags: 0x%04X)", rcode, RCodeNoError, flags),
		}
	}
	return nil
}
