package ecs

import (
	"github.com/phanxgames/imgview"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// CommandEventType is the Donburi event type for viewport commands.
// Subscribe to it in your ECS systems and drain it with ProcessEvents.
var CommandEventType = events.NewEventType[imgview.CommandEvent]()

// ViewState is the latest viewport state as seen through its commands.
type ViewState struct {
	Zoom     float64
	Pan      imgview.Vec2
	Hovering bool
	URL      string // last image that finished decoding, empty after a failure
	Divider  float64
	Ready    bool
}

// ViewStateComponent holds the ViewState of the sink's entity.
var ViewStateComponent = donburi.NewComponentType[ViewState]()

type donburiSink struct {
	world  donburi.World
	entity donburi.Entity
}

// NewDonburiSink creates a CommandSink backed by a Donburi world. It creates
// one entity with ViewStateComponent that is updated as commands arrive.
func NewDonburiSink(world donburi.World) imgview.CommandSink {
	return &donburiSink{
		world:  world,
		entity: world.Create(ViewStateComponent),
	}
}

// EmitCommand implements imgview.CommandSink.
func (s *donburiSink) EmitCommand(e imgview.CommandEvent) {
	if s.world.Valid(s.entity) {
		applyCommand(ViewStateComponent.Get(s.world.Entry(s.entity)), e)
	}
	CommandEventType.Publish(s.world, e)
}

// applyCommand folds e into st.
func applyCommand(st *ViewState, e imgview.CommandEvent) {
	switch e.Type {
	case imgview.CommandZoomChange, imgview.CommandPanReset, imgview.CommandActivate:
		st.Zoom, st.Pan = e.Zoom, e.Pan
	case imgview.CommandHoverChange:
		st.Hovering = e.Hovering
	case imgview.CommandDividerChange:
		st.Divider = e.DividerPercent
	case imgview.CommandImageReady:
		st.Zoom, st.Pan = e.Zoom, e.Pan
		st.URL = e.URL
		st.Ready = true
	case imgview.CommandImageFailed:
		st.URL = ""
		st.Ready = false
		st.Hovering = false
	}
}
