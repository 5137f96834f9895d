package rectify

import (
	"fmt"
	"strings"
)

// Method selects how destination pixels are mapped back into the quad.
type Method string

const (
	// MethodBilinear interpolates the four corners with u=x/W, v=y/H. It is
	// exact only for parallelograms.
	MethodBilinear Method = "bilinear"
	// MethodHomography uses the projective transform of the destination
	// rectangle onto the quad.
	MethodHomography Method = "homography"
)

// DegeneratePolicy decides what happens when the quad collapses.
type DegeneratePolicy string

const (
	// DegenerateReject returns ErrDegenerateQuad when a side is below MinSide.
	DegenerateReject DegeneratePolicy = "reject"
	// DegeneratePreserve returns whatever raster the size formula yields,
	// possibly 0x0.
	DegeneratePreserve DegeneratePolicy = "preserve"
)

// Config holds configuration for the rectification process.
type Config struct {
	Method     Method           // pixel mapper (bilinear or homography)
	Degenerate DegeneratePolicy // reject or preserve collapsed quads
	MinSide    int              // minimum output width/height under the reject policy
	MaxPixels  int64            // output area above which Apply refuses to allocate; 0 selects DefaultMaxPixels
	// Debug dumping
	DebugDir string // if non-empty, writes overlay and comparison PNGs here
}

// DefaultMaxPixels caps the output at 64 megapixels, 256 MiB of RGBA.
const DefaultMaxPixels int64 = 64 << 20

// DefaultConfig returns the bilinear mapper with collapsed quads rejected.
func DefaultConfig() Config {
	return Config{
		Method:     MethodBilinear,
		Degenerate: DegenerateReject,
		MinSide:    1,
		MaxPixels:  DefaultMaxPixels,
		DebugDir:   "",
	}
}

// ParseMethod accepts a mapper name, case-insensitively. Empty selects bilinear.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodBilinear:
		return MethodBilinear, nil
	case MethodHomography, "perspective":
		return MethodHomography, nil
	default:
		return "", fmt.Errorf("invalid rectify method: %s (must be one of: %s, %s)", s, MethodBilinear, MethodHomography)
	}
}

// ParseDegeneratePolicy accepts a policy name. Empty selects reject.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch DegeneratePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DegenerateReject:
		return DegenerateReject, nil
	case DegeneratePreserve:
		return DegeneratePreserve, nil
	default:
		return "", fmt.Errorf("invalid degenerate policy: %s (must be one of: %s, %s)",
			s, DegenerateReject, DegeneratePreserve)
	}
}

// Validate normalizes and checks the configuration.
func (c *Config) Validate() error {
	m, err := ParseMethod(string(c.Method))
	if err != nil {
		return err
	}
	p, err := ParseDegeneratePolicy(string(c.Degenerate))
	if err != nil {
		return err
	}
	if c.MinSide < 0 {
		return fmt.Errorf("min side must be non-negative, got %d", c.MinSide)
	}
	if c.MaxPixels < 0 {
		return fmt.Errorf("max pixels must be non-negative, got %d", c.MaxPixels)
	}
	if c.MaxPixels == 0 {
		c.MaxPixels = DefaultMaxPixels
	}
	c.Method, c.Degenerate = m, p
	return nil
}
