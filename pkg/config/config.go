package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Key names recognized in the server configuration file, grounded on
// original_source/drbdmanage/server.py's KEY_* constants.
const (
	KeyStoragePlugin  = "storage-plugin"
	KeyDeployerPlugin = "deployer-plugin"
	KeyMaxNodeID      = "max-node-id"
	KeyMaxPeers       = "max-peers"
	KeyMinMinorNr     = "min-minor-nr"
	KeyMinPortNr      = "min-port-nr"
	KeyMaxPortNr      = "max-port-nr"
	KeyDrbdadmPath    = "drbdadm-path"
	KeyExtendPath     = "extend-path"
	KeyDrbdConfPath   = "drbd-conf-path"
	KeyDrbdctrlVG     = "drbdctrl-vg"
)

// Config is the parsed, typed server configuration (spec §6).
type Config struct {
	StoragePlugin  string
	DeployerPlugin string
	MaxNodeID      int
	MaxPeers       int
	MinMinorNr     int
	MinPortNr      int
	MaxPortNr      int
	DrbdadmPath    string
	ExtendPath     string
	DrbdConfPath   string
	DrbdctrlVG     string
}

// Default returns the documented defaults (spec §6 table), identical in
// value to original_source/drbdmanage/server.py's CONF_DEFAULTS.
func Default() Config {
	return Config{
		StoragePlugin:  "LVM",
		DeployerPlugin: "Balanced",
		MaxNodeID:      31,
		MaxPeers:       7,
		MinMinorNr:     100,
		MinPortNr:      7000,
		MaxPortNr:      7999,
		DrbdadmPath:    "/usr/sbin",
		ExtendPath:     "/sbin:/usr/sbin:/bin:/usr/bin",
		DrbdConfPath:   "/var/lib/drbd.d",
		DrbdctrlVG:     "drbdpool",
	}
}

// Load reads a key=value configuration file, starting from Default()
// and overriding whichever keys are present. '#'-prefixed lines and
// blank lines are ignored. An unrecognized key is rejected with an
// error rather than silently ignored, to surface typos early.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a key=value configuration stream into a Config, starting
// from Default().
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	raw := make(map[string]string)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, fmt.Errorf("config: line %d: missing '=': %q", lineNo, line)
		}
		raw[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: scan: %w", err)
	}

	for key, value := range raw {
		if err := cfg.apply(key, value); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c *Config) apply(key, value string) error {
	switch key {
	case KeyStoragePlugin:
		c.StoragePlugin = value
	case KeyDeployerPlugin:
		c.DeployerPlugin = value
	case KeyMaxNodeID:
		return setInt(&c.MaxNodeID, key, value)
	case KeyMaxPeers:
		return setInt(&c.MaxPeers, key, value)
	case KeyMinMinorNr:
		return setInt(&c.MinMinorNr, key, value)
	case KeyMinPortNr:
		return setInt(&c.MinPortNr, key, value)
	case KeyMaxPortNr:
		return setInt(&c.MaxPortNr, key, value)
	case KeyDrbdadmPath:
		c.DrbdadmPath = value
	case KeyExtendPath:
		c.ExtendPath = value
	case KeyDrbdConfPath:
		c.DrbdConfPath = value
	case KeyDrbdctrlVG:
		c.DrbdctrlVG = value
	default:
		return fmt.Errorf("config: unrecognized key %q", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("config: %s: invalid integer %q", key, value)
	}
	*dst = n
	return nil
}
