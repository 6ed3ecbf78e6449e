package extraction

import (
	"math"
	"time"
)

// State is an extraction call's position in the orchestrator state machine.
type State int

const (
	StateAwaitingInput State = iota
	StateExtracting
	StateSucceeded
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateExtracting:
		return "extracting"
	case StateSucceeded:
		return "succeeded"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// StatusEvent is the user-facing processing signal emitted around a call:
// exactly one "processing started" followed by exactly one succeeded or
// degraded event. Events are data; rendering them is the caller's concern.
type StatusEvent struct {
	ImageRef string `json:"image_ref,omitempty"`
	State    State  `json:"state"`
	Message  string `json:"message"`
}

// EventSink receives status events. A nil sink drops them.
type EventSink func(StatusEvent)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Input is one extraction request: the raw OCR text (may be empty), an opaque
// image reference threaded through to the record, and a seed deriving from
// the input's identity so degraded-mode output is reproducible.
type Input struct {
	RawText  string
	ImageRef string
	Seed     int64
}

// Result is the orchestrator's uniform return type. Degraded distinguishes a
// synthesized fallback record from a real extraction.
type Result struct {
	Record   ReceiptRecord
	State    State
	Degraded bool
}

// Engine sequences the field extractors and the reconciler, falling back to
// the synthetic generator when extraction cannot produce a valid record. It
// holds no per-call state; concurrent Extract calls are safe.
type Engine struct {
	clock  Clock
	events EventSink
}

// NewEngine creates an Engine on the system clock with no event sink.
func NewEngine() *Engine {
	return NewEngineWithDeps(nil, nil)
}

// NewEngineWithDeps creates an Engine with an injected clock and event sink.
func NewEngineWithDeps(clock Clock, events EventSink) *Engine {
	if clock == nil {
		clock = systemClock{}
	}
	return &Engine{clock: clock, events: events}
}

// Extract runs one extraction call through the state machine
// AwaitingInput -> Extracting -> {Succeeded, Degraded}. It never fails: any
// problem in the pipeline degrades to a synthesized record, and the degraded
// tag on the result is the only surfaced signal. There is no internal retry;
// terminal states are final for the call.
func (e *Engine) Extract(in Input) Result {
	e.emit(StatusEvent{ImageRef: in.ImageRef, State: StateExtracting, Message: "processing started"})

	record, ok := e.extract(in)
	if !ok {
		record = Synthesize(in.Seed, e.clock.Now())
		record.ImageRef = in.ImageRef
		e.emit(StatusEvent{ImageRef: in.ImageRef, State: StateDegraded, Message: "processing degraded to fallback"})
		return Result{Record: record, State: StateDegraded, Degraded: true}
	}

	e.emit(StatusEvent{ImageRef: in.ImageRef, State: StateSucceeded, Message: "processing succeeded"})
	return Result{Record: record, State: StateSucceeded}
}

// extract runs the field extractors and the reconciler. The ok return is
// false when the text is unusable; a panic anywhere in the pipeline is also
// absorbed into the degraded path so the caller always gets a record.
func (e *Engine) extract(in Input) (record ReceiptRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if !usableText(in.RawText) {
		return ReceiptRecord{}, false
	}

	total, currency := ExtractTotal(in.RawText)
	record = ReceiptRecord{
		Vendor:    ExtractVendor(in.RawText),
		Date:      ExtractDate(in.RawText, e.clock.Now()),
		Total:     total,
		Currency:  currency,
		TaxAmount: ExtractTax(in.RawText, total),
		Items:     Reconcile(total, ExtractItems(in.RawText, total)),
		ImageRef:  in.ImageRef,
	}
	return record, validRecord(record)
}

// validRecord checks the invariants a returned record must satisfy. A record
// failing them is discarded in favor of the synthetic fallback.
func validRecord(r ReceiptRecord) bool {
	if r.Total < 0 || r.TaxAmount < 0 || len(r.Items) == 0 {
		return false
	}
	if r.Total > 0 && r.TaxAmount >= r.Total {
		return false
	}
	if math.Abs(r.Total-r.ItemsTotal()) > driftTolerance {
		return false
	}
	for _, it := range r.Items {
		if it.Quantity < 1 || it.UnitPrice < 0 || it.TotalPrice < 0 {
			return false
		}
	}
	return true
}

func usableText(text string) bool {
	for _, c := range text {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return true
		}
	}
	return false
}

func (e *Engine) emit(ev StatusEvent) {
	if e.events != nil {
		e.events(ev)
	}
}
