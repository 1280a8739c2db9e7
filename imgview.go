package imgview

import (
	"errors"
	"math"
)

// Vec2 is a 2D vector used for positions, offsets, sizes, and pan deltas.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v multiplied by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// finite reports whether both components are finite numbers.
func (v Vec2) finite() bool { return isFinite(v.X) && isFinite(v.Y) }

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Intersect returns the overlapping area of r and other. The result has zero
// width or height when the rectangles do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	x0 := math.Max(r.X, other.X)
	y0 := math.Max(r.Y, other.Y)
	x1 := math.Min(r.X+r.Width, other.X+other.Width)
	y1 := math.Min(r.Y+r.Height, other.Y+other.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{r.X + r.Width/2, r.Y + r.Height/2}
}

// State is the lifecycle state of a viewport's primary image.
type State uint8

const (
	StateEmpty   State = iota // no image requested or the last decode failed
	StateLoading              // a decode is in flight; a previous image may still be visible
	StateReady                // an image is decoded and displayed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Corner identifies an image-relative anchor for overlay controls.
type Corner uint8

const (
	CornerTopLeft     Corner = iota // top-left corner of the rendered image
	CornerTopRight                  // top-right corner
	CornerBottomLeft                // bottom-left corner
	CornerBottomRight               // bottom-right corner
	CornerCenter                    // center of the rendered image
)

// CommandType identifies a logical command emitted by a Viewport.
type CommandType uint8

const (
	CommandActivate      CommandType = iota // click without drag over the image
	CommandZoomChange                       // zoom changed through a gesture or control
	CommandPanReset                         // view was fitted and pan reset to zero
	CommandHoverChange                      // pointer entered or left the image bounds
	CommandButton                           // an overlay button was clicked
	CommandDividerChange                    // comparison divider moved
	CommandImageReady                       // primary image finished decoding
	CommandImageFailed                      // primary image failed to decode
	commandTypeCount
)

// String returns the command name used in logs and test scripts.
func (c CommandType) String() string {
	switch c {
	case CommandActivate:
		return "activate"
	case CommandZoomChange:
		return "zoom-change"
	case CommandPanReset:
		return "pan-reset"
	case CommandHoverChange:
		return "hover-change"
	case CommandButton:
		return "button"
	case CommandDividerChange:
		return "divider-change"
	case CommandImageReady:
		return "image-ready"
	case CommandImageFailed:
		return "image-failed"
	default:
		return "unknown"
	}
}

// CommandEvent carries the payload of an emitted command. Only the fields
// relevant to Type are populated.
type CommandEvent struct {
	Type CommandType

	Zoom  float64
	Pan   Vec2
	Point Vec2 // screen position for pointer-driven commands

	Hovering       bool    // CommandHoverChange
	Button         string  // CommandButton
	DividerPercent float64 // CommandDividerChange

	URL string // CommandImageReady, CommandImageFailed
	Err error  // CommandImageFailed
}

// CommandSink receives every emitted command. It is the bridge used by the
// ecs submodule; set one with Viewport.SetCommandSink.
type CommandSink interface {
	EmitCommand(event CommandEvent)
}

// Sentinel errors.
var (
	ErrEmptyURL          = errors.New("imgview: empty image url")
	ErrUnsupportedScheme = errors.New("imgview: unsupported url scheme")
	ErrInvalidConfig     = errors.New("imgview: invalid config")
)

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// clamp restricts a value to a given range.
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
