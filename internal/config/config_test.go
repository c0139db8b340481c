package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snmp_logfile: /var/log/snmptrapd.log\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/log/snmptrapd.log", cfg.SNMPLogfile)
	require.Equal(t, 5, cfg.ServerThreshold)
	require.Equal(t, 4, cfg.SNMPConsoleThreads)
	require.Equal(t, "info", cfg.App.LogLevel)
}

func TestLoadMissingLogfileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_threshold: 5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadStormThresholdAndWindowAreIndependent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"snmp_logfile: /var/log/snmptrapd.log\nsnmp_storm_protection: 5\nsnmp_storm_timeout: 3600\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.SNMPStormProtection, "threshold must come from snmp_storm_protection alone")
	require.Equal(t, 3600, cfg.SNMPStormTimeout, "window must come from snmp_storm_timeout alone")
}

func TestLoadForwardingRequiresIP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"snmp_logfile: /var/log/snmptrapd.log\nsnmp_forward_trap: true\nsnmp_forward_version: \"2c\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
