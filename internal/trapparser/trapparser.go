// Package trapparser parses logical trap-log lines into
// pkg/types.Trap values across the v1 and v2 wire dialects.
package trapparser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "snmptrapd-core/pkg/errors"
	"snmptrapd-core/pkg/types"
)

const fieldDelim = "[**]"

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

var genericTrapOID = regexp.MustCompile(`^\.?1\.3\.6\.1\.6\.3\.1\.1\.5\.([1-5])$`)

var oidEqualsPrefix = regexp.MustCompile(`^.*=\s*OID:\s*`)

// Parser parses logical lines into Trap values. usePDUAddress mirrors
// the snmp_pdu_address config flag (v1 source normalization).
type Parser struct {
	usePDUAddress bool
}

// New builds a Parser honoring the v1 source-normalization flag.
func New(usePDUAddress bool) *Parser {
	return &Parser{usePDUAddress: usePDUAddress}
}

// Parse dispatches on the leading version token and returns nil, err
// for malformed lines (caller logs and drops per spec.md §7).
func (p *Parser) Parse(line string) (*types.Trap, error) {
	switch {
	case strings.HasPrefix(line, "SNMPv1"+fieldDelim):
		return p.parseV1(line)
	case strings.HasPrefix(line, "SNMPv2"+fieldDelim):
		return p.parseV2(line)
	default:
		return nil, apperrors.New(apperrors.CodeTrapMalformed, "trapparser", "Parse",
			"unknown trap version prefix").WithMetadata("line", line)
	}
}

func (p *Parser) parseV1(line string) (*types.Trap, error) {
	fields := strings.Split(line, fieldDelim)
	// fields[0] == "SNMPv1"; 8 fields follow.
	if len(fields) < 9 {
		return nil, apperrors.New(apperrors.CodeTrapMalformed, "trapparser", "parseV1",
			"v1 trap has too few fields").WithMetadata("line", line)
	}

	date := fields[1]
	tm := fields[2]
	source := fields[3]
	oid := fields[4]
	genericStr := fields[5]
	typeDesc := fields[6]
	value := sanitize(fields[7])
	data := strings.Join(fields[8:], fieldDelim)

	if p.usePDUAddress {
		source = NormalizeSource(source)
	}

	if oid == "" || oid == "." {
		oid = typeDesc
	}
	if oid == "" {
		return nil, apperrors.New(apperrors.CodeTrapMalformed, "trapparser", "parseV1",
			"v1 trap has no usable oid").WithMetadata("line", line)
	}

	generic, _ := strconv.Atoi(genericStr)

	receivedAt := date + " " + tm

	return &types.Trap{
		Version:       "v1",
		ReceivedAt:    receivedAt,
		UnixTime:      toUnix(receivedAt),
		Source:        source,
		OID:           oid,
		GenericType:   generic,
		Value:         value,
		TypeDesc:      typeDesc,
		CustomPayload: data,
		RawTail:       data,
	}, nil
}

func (p *Parser) parseV2(line string) (*types.Trap, error) {
	fields := strings.Split(line, fieldDelim)
	// fields[0] == "SNMPv2"; 4 fields follow.
	if len(fields) < 5 {
		return nil, apperrors.New(apperrors.CodeTrapMalformed, "trapparser", "parseV2",
			"v2 trap has too few fields").WithMetadata("line", line)
	}

	date := fields[1]
	tm := fields[2]
	source := NormalizeSource(fields[3])
	data := strings.Join(fields[4:], fieldDelim)

	varbinds := strings.Split(data, "\t")
	if len(varbinds) < 2 {
		return nil, apperrors.New(apperrors.CodeTrapMalformed, "trapparser", "parseV2",
			"v2 trap data has no OID varbind").WithMetadata("line", line)
	}

	oidField := oidEqualsPrefix.ReplaceAllString(varbinds[1], "")
	oidField = strings.TrimSpace(oidField)
	if oidField == "" {
		return nil, apperrors.New(apperrors.CodeTrapMalformed, "trapparser", "parseV2",
			"v2 trap has empty oid").WithMetadata("line", line)
	}

	generic := deriveGenericType(oidField)

	remaining := append([]string{}, varbinds[2:]...)
	customPayload := strings.Join(remaining, "\t")

	receivedAt := date + " " + tm

	return &types.Trap{
		Version:       "v2",
		ReceivedAt:    receivedAt,
		UnixTime:      toUnix(receivedAt),
		Source:        source,
		OID:           oidField,
		GenericType:   generic,
		CustomPayload: customPayload,
		RawTail:       customPayload,
	}, nil
}

// deriveGenericType implements spec.md §4.2's standard-OID-prefix
// rule: .1.3.6.1.6.3.1.1.5.N for N in 1..5 maps to N-1; anything else
// maps to 6.
func deriveGenericType(oid string) int {
	m := genericTrapOID.FindStringSubmatch(oid)
	if m == nil {
		return 6
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 6
	}
	return n - 1
}

var sourcePrefix = regexp.MustCompile(`(?i)^(tcp|udp):\s*`)
var destinationTail = regexp.MustCompile(`\s*->.*$`)
var portSuffix = regexp.MustCompile(`:-?\d+$`)

// NormalizeSource implements spec.md §4.2's source-canonicalization
// rule: strip an optional TCP:/UDP: prefix, optional surrounding
// brackets, optional :port suffix (port may be negative), and an
// optional "-> ..." destination tail.
func NormalizeSource(raw string) string {
	s := strings.TrimSpace(raw)
	s = destinationTail.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = sourcePrefix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = portSuffix.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return strings.TrimSpace(s)
}

func sanitize(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// toUnix converts the daemon's "YYYY-MM-DD HH:MM:SS" timestamp to a
// unix integer; zero on parse failure (the string form is preserved
// regardless, per spec.md §3).
func toUnix(receivedAt string) int64 {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", receivedAt, time.Local)
	if err != nil {
		return 0
	}
	return t.Unix()
}
