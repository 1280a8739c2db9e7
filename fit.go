package imgview

import "math"

// FitParams describes the area an image is fitted into.
type FitParams struct {
	CanvasW, CanvasH float64
	PanelWidthPx     float64 // width reserved for the side panel
	PaddingPx        float64 // applied on every side
}

// FitAndCenter returns the transform that shows the whole image inside the
// canvas minus the panel reservation and padding. Images are never scaled
// past native resolution, and the result is floored at the minimum zoom for
// the image. Pan is always zero: centering comes from the screen-center term.
func FitAndCenter(imgW, imgH float64, p FitParams, cfg Config) Transform {
	return fitAndCenter(imgW, imgH, p, cfg.limits())
}

func fitAndCenter(imgW, imgH float64, p FitParams, l zoomLimits) Transform {
	lo, hi := l.bounds(imgW, imgH)
	if imgW <= 0 || imgH <= 0 {
		return Transform{Zoom: clamp(1, lo, hi)}
	}

	availW := p.CanvasW - p.PanelWidthPx - 2*p.PaddingPx
	availH := p.CanvasH - 2*p.PaddingPx

	scale := math.Min(math.Min(availW/imgW, availH/imgH), 1)
	if !isFinite(scale) {
		scale = lo
	}
	return Transform{Zoom: clamp(math.Max(scale, lo), lo, hi)}
}

// Fit applies FitAndCenter for the model's current image and canvas.
func (m *Model) Fit(panelWidthPx, paddingPx float64) Transform {
	t := fitAndCenter(m.imageW, m.imageH, FitParams{
		CanvasW:      m.canvasW,
		CanvasH:      m.canvasH,
		PanelWidthPx: panelWidthPx,
		PaddingPx:    paddingPx,
	}, m.limits)
	m.SetZoom(t.Zoom)
	m.SetPan(t.Pan)
	return m.Transform()
}
