package cidr

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// listFile is the on-disk shape of a blacklist/exceptions table.
type listFile struct {
	Prefixes []Prefix `yaml:"prefixes"`
}

// LoadFile reads a CIDR table from a YAML file of the form:
//
//	prefixes:
//	  - network: 10.0.0.0
//	    bits: 8
//
// This replaces the original implementation's compiled-in DataCenters and
// HaxBallMatcher tables (spec §6, "Configuration") with data loaded at
// startup, so operators can update block lists without a rebuild.
func LoadFile(path string) (*Matcher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cidr: failed to read %s: %w", path, err)
	}
	var lf listFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("cidr: failed to parse %s: %w", path, err)
	}
	return New(lf.Prefixes...)
}
