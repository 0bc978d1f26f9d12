// Package config loads the engine's tunables from an optional YAML file,
// replacing the original's compile-time constants (HaxWall/ban.h's #define
// table and the BLOCK_DATA_CENTERS build switch) with runtime-overridable
// defaults, per spec §3/§6 expansion notes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tunables mirrors spec §3's tunables table. LoadFile decodes a file over
// DefaultTunables(), so a field absent from the file keeps its default,
// while a field present in the file, even as 0 or false, replaces it.
// MaxPackets and MaxPacketFrame are loaded but not applied by
// firewall.WithTunables.
type Tunables struct {
	MaxPorts              int  `yaml:"max_ports"`
	Timeout               int  `yaml:"timeout"`
	PurgeInterval         int  `yaml:"purge_interval"`
	MaxPackets            int  `yaml:"max_packets"`
	MaxPacketFrame        int  `yaml:"max_packet_frame"`
	BanDurationMultiport  int  `yaml:"ban_duration_multiport"`
	BanDurationFlood      int  `yaml:"ban_duration_flood"`
	BanDurationBlacklist  int  `yaml:"ban_duration_blacklist"`
	BlockDataCenters      bool `yaml:"block_data_centers"`
}

// DefaultTunables returns the exact values from spec §3's table. The
// original's BLOCK_DATA_CENTERS switch was commented out by default, so
// BlockDataCenters defaults to false.
func DefaultTunables() Tunables {
	return Tunables{
		MaxPorts:             3,
		Timeout:              60,
		PurgeInterval:        30,
		MaxPackets:           80,
		MaxPacketFrame:       1,
		BanDurationMultiport: 60,
		BanDurationFlood:     60,
		BanDurationBlacklist: 3600,
		BlockDataCenters:     false,
	}
}

// LoadFile reads tunables from a YAML file at path, starting from
// DefaultTunables and overriding only the fields present in the file.
func LoadFile(path string) (Tunables, error) {
	t := DefaultTunables()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return t, nil
}
