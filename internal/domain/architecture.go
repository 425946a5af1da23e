package domain

import "fmt"

// Architecture identifies the AMM pool design a pool belongs to.
type Architecture string

const (
	ArchitectureV2 Architecture = "UNISWAP_V2"
	ArchitectureV3 Architecture = "UNISWAP_V3"
)

// String returns the string representation of Architecture.
func (a Architecture) String() string {
	return string(a)
}

// IsValid checks if the architecture is a known value.
func (a Architecture) IsValid() bool {
	return a == ArchitectureV2 || a == ArchitectureV3
}

// ParseArchitecture accepts the stored form ("UNISWAP_V2") or the short form ("v2").
func ParseArchitecture(s string) (Architecture, error) {
	switch s {
	case "UNISWAP_V2", "v2", "V2":
		return ArchitectureV2, nil
	case "UNISWAP_V3", "v3", "V3":
		return ArchitectureV3, nil
	}
	return "", fmt.Errorf("unknown architecture %q", s)
}
