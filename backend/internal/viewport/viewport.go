package viewport

import (
	"math"

	"diarygraph/backend/internal/constants"
	"diarygraph/backend/internal/layout"
)

// Gesture is what the current pointer session is doing
type Gesture int

const (
	GestureNone Gesture = iota
	GestureDrag
	GesturePan
)

func (g Gesture) String() string {
	switch g {
	case GestureDrag:
		return "drag"
	case GesturePan:
		return "pan"
	}
	return "none"
}

// Viewport maps world coordinates to screen pixels: screen = world*zoom + offset.
// It is purely a display transform; physics never sees it.
type Viewport struct {
	Width      float64
	Height     float64
	Zoom       float64
	Offset     layout.Vec
	FitPadding float64

	gesture Gesture
	grab    layout.Vec // node position minus pointer, in world units
	last    layout.Vec // last pointer position while panning, in pixels
}

// New creates a viewport of the given pixel size, centred on the origin
func New(width, height float64) *Viewport {
	if width <= 0 {
		width = constants.DefaultWidth
	}
	if height <= 0 {
		height = constants.DefaultHeight
	}
	v := &Viewport{Width: width, Height: height, FitPadding: constants.FitPadding}
	v.Reset()
	return v
}

// Reset restores zoom 1 with the world origin at the viewport centre
func (v *Viewport) Reset() {
	v.Zoom = 1
	v.Offset = v.center()
}

// Resize changes the pixel size, keeping the world point under the centre fixed
func (v *Viewport) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	world := v.ScreenToWorld(v.center())
	v.Width, v.Height = width, height
	v.Offset = v.center().Sub(world.Scale(v.Zoom))
}

func (v *Viewport) center() layout.Vec {
	return layout.Vec{X: v.Width / 2, Y: v.Height / 2}
}

// ScreenToWorld converts a pixel position into world units
func (v *Viewport) ScreenToWorld(p layout.Vec) layout.Vec {
	return p.Sub(v.Offset).Scale(1 / v.Zoom)
}

// WorldToScreen converts a world position into pixels
func (v *Viewport) WorldToScreen(p layout.Vec) layout.Vec {
	return p.Scale(v.Zoom).Add(v.Offset)
}

// zoomAround sets the zoom while keeping the world point under anchor fixed
func (v *Viewport) zoomAround(anchor layout.Vec, zoom float64) {
	world := v.ScreenToWorld(anchor)
	v.Zoom = zoom
	v.Offset = anchor.Sub(world.Scale(zoom))
}

// ZoomIn steps the zoom up, anchored at the viewport centre
func (v *Viewport) ZoomIn() {
	v.zoomAround(v.center(), clamp(v.Zoom*constants.ZoomStep, constants.MinButtonZoom, constants.MaxZoom))
}

// ZoomOut steps the zoom down, anchored at the viewport centre
func (v *Viewport) ZoomOut() {
	v.zoomAround(v.center(), clamp(v.Zoom/constants.ZoomStep, constants.MinButtonZoom, constants.MaxZoom))
}

// ZoomAt scales by factor around the pointer position, as a wheel would
func (v *Viewport) ZoomAt(screen layout.Vec, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	v.zoomAround(screen, clamp(v.Zoom*factor, constants.MinZoom, constants.MaxZoom))
}

// Fit scales and centres the view on the bounding box of node positions.
// It reports false and leaves the view untouched for an empty node set.
func (v *Viewport) Fit(nodes []layout.Node) bool {
	if len(nodes) == 0 {
		return false
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range nodes {
		p := nodes[i].Position
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	boxW := math.Max(maxX-minX, 1)
	boxH := math.Max(maxY-minY, 1)
	availW := math.Max(v.Width-2*v.FitPadding, 1)
	availH := math.Max(v.Height-2*v.FitPadding, 1)

	zoom := clamp(math.Min(availW/boxW, availH/boxH), constants.MinZoom, constants.MaxZoom)
	mid := layout.Vec{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}

	v.Zoom = zoom
	v.Offset = v.center().Sub(mid.Scale(zoom))
	return true
}

// HitTest returns the index of the topmost node under world, or -1. Later
// nodes are drawn on top so the scan runs backwards.
func HitTest(nodes []layout.Node, world layout.Vec) int {
	for i := len(nodes) - 1; i >= 0; i-- {
		if world.Sub(nodes[i].Position).Len() < nodes[i].Radius+constants.HitSlop {
			return i
		}
	}
	return -1
}

// Gesture returns the active pointer gesture
func (v *Viewport) Gesture() Gesture {
	return v.gesture
}

// PointerDown starts a drag when a node was hit, otherwise a pan. nodePos
// is the hit node's world position and is ignored for pans.
func (v *Viewport) PointerDown(screen layout.Vec, hit bool, nodePos layout.Vec) Gesture {
	if hit {
		v.gesture = GestureDrag
		v.grab = nodePos.Sub(v.ScreenToWorld(screen))
	} else {
		v.gesture = GesturePan
		v.last = screen
	}
	return v.gesture
}

// PointerMove pans the view or returns the world position the dragged node
// should move to. ok is false unless a drag is active.
func (v *Viewport) PointerMove(screen layout.Vec) (target layout.Vec, ok bool) {
	switch v.gesture {
	case GestureDrag:
		return v.ScreenToWorld(screen).Add(v.grab), true
	case GesturePan:
		v.Offset = v.Offset.Add(screen.Sub(v.last))
		v.last = screen
	}
	return layout.Vec{}, false
}

// PointerUp ends whichever gesture was active and returns it
func (v *Viewport) PointerUp() Gesture {
	g := v.gesture
	v.gesture = GestureNone
	v.grab = layout.Vec{}
	return g
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
