package filter

import (
	"image"
	"log/slog"

	"github.com/MeKo-Tech/docscan/internal/utils"
)

// Selector holds a rectified base raster and the currently displayed
// variant. Filters are exclusive: every selection recomputes from the base,
// so at most one filter is ever in effect.
type Selector struct {
	base    *image.RGBA
	current *image.RGBA
	kind    Kind
}

// NewSelector returns a selector over base, showing it unfiltered.
func NewSelector(base image.Image) *Selector {
	s := &Selector{}
	s.SetBase(base)
	return s
}

// SetBase installs a new base and resets the selection to original. A nil
// base clears the selector.
func (s *Selector) SetBase(base image.Image) {
	if base == nil {
		s.base, s.current, s.kind = nil, nil, ""
		return
	}
	s.base = utils.CloneRGBA(base)
	s.current = utils.CloneRGBA(s.base)
	s.kind = KindOriginal
}

// Select applies kind to the base and makes it current. It reports false
// and changes nothing when there is no base or the filter fails.
func (s *Selector) Select(kind Kind) (*image.RGBA, bool) {
	if s.base == nil {
		return nil, false
	}
	out, err := Apply(s.base, kind)
	if err != nil {
		slog.Debug("filter selection failed", "filter", string(kind), "error", err)
		return nil, false
	}
	s.current = out
	s.kind = kind
	return out, true
}

// Base returns the unfiltered raster, or nil.
func (s *Selector) Base() *image.RGBA { return s.base }

// Current returns the displayed raster, or nil.
func (s *Selector) Current() *image.RGBA { return s.current }

// Kind returns the filter in effect, or "" without a base.
func (s *Selector) Kind() Kind { return s.kind }
