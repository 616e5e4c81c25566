// Package export renders stored particle snapshots to SVG, one dot per
// particle, for quick inspection of a run without replaying it.
package export

import (
	"fmt"
	"strings"

	"github.com/mawry/graupel/internal/storage"
)

var stateColors = map[string]string{
	"updating": "#5fd7ff",
	"buffer":   "#ffd75f",
	"inactive": "#585858",
}

// FrameSVG renders the particles of one frame, projected onto the x/y plane.
// The domain is assumed cubic with the given resolution.
func FrameSVG(records []storage.ParticleRecord, frame, res, size int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, size, size, size, size))

	scale := float64(size) / float64(res)
	radius := scale * 0.3
	if radius < 1 {
		radius = 1
	}

	for _, rec := range records {
		if rec.Frame != frame {
			continue
		}
		color, ok := stateColors[rec.State]
		if !ok {
			color = "#ffffff"
		}
		cx := rec.X * scale
		cy := float64(size) - rec.Y*scale
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, cx, cy, radius, color))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// LastFrame returns the highest frame index present in the records.
func LastFrame(records []storage.ParticleRecord) int {
	last := 0
	for _, rec := range records {
		if rec.Frame > last {
			last = rec.Frame
		}
	}
	return last
}
