// Package forward translates a parsed trap into a downstream
// snmptrap-equivalent command-line invocation, per spec.md §4.6.
package forward

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"snmptrapd-core/internal/metrics"
	"snmptrapd-core/pkg/types"
)

// letterByTag is the fixed varbind type-tag to short-letter mapping.
var letterByTag = map[string]string{
	"INTEGER":        "i",
	"UNSIGNED":       "u",
	"COUNTER32":      "c",
	"STRING":         "s",
	"HEX STRING":     "x",
	"DECIMAL STRING": "d",
	"OBJID":          "o",
	"TIMETICKS":      "t",
	"IPADDRESS":      "a",
	"BITS":           "b",
	"NULLOBJ":        "n",
}

var nonDigit = regexp.MustCompile(`[^0-9-]`)

var varbindTriple = regexp.MustCompile(
	`([.\w]+)\s*=?\s*(INTEGER|UNSIGNED|COUNTER32|STRING|HEX STRING|DECIMAL STRING|NULLOBJ|OBJID|TIMETICKS|IPADDRESS|BITS):?\s+(\S+)`)

// Forwarder invokes an external snmptrap-equivalent binary with
// translated varbind arguments.
type Forwarder struct {
	cfg types.Config
	log *logrus.Entry
	m   *metrics.Metrics
}

// New builds a Forwarder from the forwarding section of cfg. m may be
// nil, in which case forwarder failures are logged but not counted.
func New(cfg types.Config, log *logrus.Entry, m *metrics.Metrics) *Forwarder {
	return &Forwarder{cfg: cfg, log: log.WithField("component", "forward"), m: m}
}

// translateVarbinds scans customPayload for (oid, type_tag, value)
// triples and emits them in "oid letter value" short form.
func translateVarbinds(customPayload string) []string {
	var parts []string
	matches := varbindTriple.FindAllStringSubmatch(customPayload, -1)
	for _, m := range matches {
		oid, tag, value := m[1], m[2], m[3]
		letter, ok := letterByTag[tag]
		if !ok {
			continue
		}
		if tag == "INTEGER" {
			value = nonDigit.ReplaceAllString(value, "")
		}
		parts = append(parts, oid, letter, value)
	}
	return parts
}

// Forward invokes the downstream binary for trap per the configured
// forward version. Failures are logged only and never propagated to
// the pipeline (spec.md §4.6).
func (f *Forwarder) Forward(ctx context.Context, trap *types.Trap) {
	args := f.buildArgs(trap)
	if args == nil {
		return
	}

	binary := f.cfg.SNMPForwardBinary
	cmdCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, binary, args...)
	if err := cmd.Run(); err != nil {
		f.log.WithError(err).WithField("source", trap.Source).WithField("oid", trap.OID).
			Warn("forwarder invocation failed")
		if f.m != nil {
			f.m.ForwardFailures.Inc()
		}
	}
}

func (f *Forwarder) buildArgs(trap *types.Trap) []string {
	version := strings.TrimSpace(f.cfg.SNMPForwardVersion)
	varbindArgs := translateVarbinds(trap.CustomPayload)

	switch version {
	case "3":
		args := []string{
			"-v", "3",
			"-u", f.cfg.SNMPForwardV3User,
			"-a", f.cfg.SNMPForwardV3AuthProto,
			"-A", f.cfg.SNMPForwardV3AuthPass,
			"-x", f.cfg.SNMPForwardV3PrivProto,
			"-X", f.cfg.SNMPForwardV3PrivPass,
			f.cfg.SNMPForwardIP,
			trap.OID,
		}
		return append(args, varbindArgs...)
	case "2c":
		args := []string{
			"-v", "2c",
			"-c", f.cfg.SNMPForwardCommunity,
			f.cfg.SNMPForwardIP,
			trap.OID,
		}
		return append(args, varbindArgs...)
	case "1":
		// Open Question (b), SPEC_FULL.md §5: Trap.Value and
		// Trap.GenericType are reused verbatim, including the empty
		// Value of v2-originated traps — not inferred. Trap.TypeDesc is
		// not passed.
		args := []string{
			"-v", "1",
			"-c", f.cfg.SNMPForwardCommunity,
			f.cfg.SNMPForwardIP,
			trap.OID,
			"",
			strconv.Itoa(trap.GenericType),
			trap.Value,
			"",
			trap.CustomPayload,
		}
		return args
	default:
		f.log.WithField("version", version).Warn("unknown forward version, skipping")
		return nil
	}
}
