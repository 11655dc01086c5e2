package models

import "fmt"

// Side identifies which half of the presentation area a stimulus occupies.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Valid reports whether s is one of the two recognized sides.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// TrialSpec is one queued stimulus pairing. Produced once by the randomizer,
// consumed exactly once by the sequencer.
type TrialSpec struct {
	StimulusA string `json:"stimulus_a"`
	StimulusB string `json:"stimulus_b"`
}

// Layout assigns the two stimuli of a trial to screen sides.
type Layout struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// At returns the stimulus shown on the given side.
func (l Layout) At(side Side) string {
	if side == SideRight {
		return l.Right
	}
	return l.Left
}

// ResponseRecord is one completed trial. Appended to the result log, never
// mutated afterwards. Times are milliseconds since session start.
type ResponseRecord struct {
	StimulusA   string `json:"stimulus_a"`
	StimulusB   string `json:"stimulus_b"`
	Left        string `json:"left"`
	Right       string `json:"right"`
	Side        Side   `json:"side"`
	Chosen      string `json:"chosen"`
	PresentedMS int64  `json:"presented_ms"`
	RespondedMS int64  `json:"responded_ms"`
	ReactionMS  int64  `json:"reaction_ms"`
}

// Telemetry event kinds.
const (
	KindPosition = "position"
	KindClick    = "click"
	KindKeyUp    = "keyup"
)

// TelemetryEvent is one entry in the passive event log. Kind selects which
// of the modality fields are meaningful. Coordinates are always emitted so
// a legitimate 0 (the viewport origin) survives the wire.
type TelemetryEvent struct {
	TSMS int64   `json:"ts_ms"`
	Kind string  `json:"kind"` // position|click|keyup
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Key  string  `json:"key,omitempty"`
}

// Raw input event kinds as posted by the browser front-end.
const (
	InputMove  = "move"
	InputClick = "click"
	InputKeyUp = "keyup"
)

// InputEvent is a raw input sample before timestamping and coordinate
// normalization.
type InputEvent struct {
	Kind string  `json:"kind"` // move|click|keyup
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Key  string  `json:"key"`
}

// InputBatch is the envelope for posted input events.
type InputBatch struct {
	Events []InputEvent `json:"events"`
}

// Validate classifies malformed input events so intake can drop them.
func (e InputEvent) Validate() error {
	switch e.Kind {
	case InputMove, InputClick:
		return nil
	case InputKeyUp:
		if e.Key == "" {
			return fmt.Errorf("keyup event with empty key")
		}
		return nil
	case "":
		return fmt.Errorf("input event with empty kind")
	default:
		return fmt.Errorf("unknown input kind: %s", e.Kind)
	}
}

// Payload is the submission handed to the crowdsourcing endpoint when the
// session finishes. Fire-and-forget; there is no response contract.
type Payload struct {
	SessionID   string           `json:"session_id"`
	StartTimeMS int64            `json:"start_time"`
	Trials      []ResponseRecord `json:"trials"`
	Events      []TelemetryEvent `json:"events"`
}
