package geo

import (
	"math"

	"github.com/warroom/extension/pkg/core"
)

// Projector maps between geographic coordinates and the simulation plane
// using an equirectangular projection fitted to a viewport.
//
// Changing the viewport does not move existing entities: positions are frozen
// in plane space at the moment they were projected.
type Projector struct {
	width  float64
	height float64
}

// NewProjector creates a projector for a width x height viewport.
func NewProjector(width, height float64) *Projector {
	return &Projector{width: width, height: height}
}

// SetViewport changes the viewport used by subsequent projections.
func (p *Projector) SetViewport(width, height float64) {
	p.width = width
	p.height = height
}

// Viewport returns the current viewport size.
func (p *Projector) Viewport() (width, height float64) {
	return p.width, p.height
}

func (p *Projector) params() (scale, xOffset, yOffset float64) {
	scale = math.Min(p.width/360, p.height/180) * 0.9
	xOffset = (p.width - 360*scale) / 2
	yOffset = (p.height - 180*scale) / 2
	return scale, xOffset, yOffset
}

// Project converts lon/lat degrees to a plane position.
func (p *Projector) Project(lon, lat float64) core.Position2D {
	scale, xOffset, yOffset := p.params()
	return core.Position2D{
		X: (lon+180)*scale + xOffset,
		Y: (90-lat)*scale + yOffset,
	}
}

// ProjectLonLat is Project for a core.LonLat.
func (p *Projector) ProjectLonLat(ll core.LonLat) core.Position2D {
	return p.Project(ll.Lon, ll.Lat)
}

// Unproject converts a plane position back to lon/lat degrees.
func (p *Projector) Unproject(pos core.Position2D) core.LonLat {
	scale, xOffset, yOffset := p.params()
	return core.LonLat{
		Lon: (pos.X-xOffset)/scale - 180,
		Lat: 90 - (pos.Y-yOffset)/scale,
	}
}
