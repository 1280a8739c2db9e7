package imgview

import (
	"encoding/json"
	"fmt"
)

// testStep represents a single action in a test script.
type testStep struct {
	Action  string  `json:"action"`
	Label   string  `json:"label,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	FromX   float64 `json:"fromX,omitempty"`
	FromY   float64 `json:"fromY,omitempty"`
	ToX     float64 `json:"toX,omitempty"`
	ToY     float64 `json:"toY,omitempty"`
	Frames  int     `json:"frames,omitempty"`
	DeltaY  float64 `json:"deltaY,omitempty"`
	Width   float64 `json:"width,omitempty"`
	URL     string  `json:"url,omitempty"`
	Mode    string  `json:"mode,omitempty"`
	Percent float64 `json:"percent,omitempty"`
}

// testScript is the top-level JSON structure for a test script.
type testScript struct {
	Steps []testStep `json:"steps"`
}

var knownActions = map[string]bool{
	"screenshot": true, "click": true, "drag": true, "wheel": true,
	"zoomIn": true, "zoomOut": true, "reset": true, "panel": true,
	"url": true, "compare": true, "mode": true, "wait": true, "waitReady": true,
}

// TestRunner sequences injected input, view commands and screenshots across
// frames for automated visual testing. Attach it with SetTestRunner.
type TestRunner struct {
	steps      []testStep
	cursor     int
	waitCount  int
	waitReady  bool
	done       bool
	stepErrors []error
}

// LoadTestScript parses a JSON test script.
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var script testScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse test script: no steps")
	}
	for i, st := range script.Steps {
		if !knownActions[st.Action] {
			return nil, fmt.Errorf("parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// SetTestRunner attaches a TestRunner. It is stepped once per Tick before
// injected input is processed.
func (v *Viewport) SetTestRunner(runner *TestRunner) {
	v.testRunner = runner
}

// Done reports whether all steps have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// Errors returns the errors of steps that could not be applied.
func (r *TestRunner) Errors() []error {
	return r.stepErrors
}

// step advances the runner by one frame.
func (r *TestRunner) step(v *Viewport) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if len(v.injectQueue) > 0 {
		return
	}
	if r.waitReady {
		if v.State() == StateLoading {
			return
		}
		r.waitReady = false
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "screenshot":
		v.Screenshot(st.Label)
	case "click":
		v.InjectClick(st.X, st.Y)
	case "drag":
		v.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, max(st.Frames, 2))
	case "wheel":
		v.InjectWheel(st.DeltaY)
	case "zoomIn":
		v.ZoomIn()
	case "zoomOut":
		v.ZoomOut()
	case "reset":
		v.ResetView()
	case "panel":
		v.SetPanelWidth(st.Width)
	case "url":
		v.SetImageURL(st.URL)
	case "compare":
		v.SetCompareURL(st.URL)
	case "mode":
		mode, err := ParseMode(st.Mode, st.Percent)
		if err != nil {
			r.stepErrors = append(r.stepErrors, fmt.Errorf("step %d: %w", r.cursor-1, err))
			break
		}
		v.SetMode(mode)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "waitReady":
		r.waitReady = true
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && !r.waitReady && len(v.injectQueue) == 0 {
		r.done = true
	}
}
