package widget

import (
	"fmt"

	"github.com/koki-develop/asciimage/internal/ascii"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/resize"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateLoadFailure
	StateProcessing
	StateRendered
	StateProcessingFailure
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateLoading:           "loading",
	StateReady:             "ready",
	StateLoadFailure:       "load_failure",
	StateProcessing:        "processing",
	StateRendered:          "rendered",
	StateProcessingFailure: "processing_failure",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Failed reports whether s is one of the failure states.
func (s State) Failed() bool {
	return s == StateLoadFailure || s == StateProcessingFailure
}

// ProcessingError is a failure while sampling or composing a pass.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return e.Err.Error()
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Frame is a consistent snapshot of a widget.
type Frame struct {
	State     State
	Output    ascii.Output
	Err       error
	Grid      resize.Grid
	Container resize.Size
	Config    config.Render

	// natural size of the current image, zero until loaded
	ImageWidth  int
	ImageHeight int

	// Pass is the token of the pass that produced Output.
	Pass uint64
	// Seq orders snapshots of one widget; later snapshots are larger.
	Seq uint64
}
