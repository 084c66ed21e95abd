package board

import (
	"sync"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/status"
)

// TargetKind identifies what was under the pointer when a gesture ended.
// The client resolves overlapping zones first-match-wins by z-order and
// reports the single winning target.
type TargetKind int

const (
	// TargetNone means the gesture ended over no registered drop zone.
	TargetNone TargetKind = iota
	TargetTable
	TargetOuting
	TargetBackground
)

// Target is a resolved drop or tap destination.
type Target struct {
	Kind  TargetKind
	Table int
}

// Gesture is the interaction state for one operator session. Exactly one
// gesture can be live at a time, which is what serializes a user's
// mutations at the UI layer.
type Gesture int

const (
	GestureIdle Gesture = iota
	GestureArmed
	GestureDragging
)

// Interactions is the explicit drag/tap state container. Touch devices get
// tap-to-select instead of dragging: arming a user and then tapping a
// target performs the equivalent assignment, and arming a second user
// implicitly disarms the first.
type Interactions struct {
	mu      sync.Mutex
	gesture Gesture
	userID  string
}

func NewInteractions() *Interactions {
	return &Interactions{}
}

// State returns the current gesture and the user it holds.
func (i *Interactions) State() (Gesture, string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.gesture, i.userID
}

// BeginDrag starts a desktop drag. A second drag while one is live is
// refused, the pointer lifecycle owns this state.
func (i *Interactions) BeginDrag(userID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.gesture != GestureIdle {
		return false
	}
	i.gesture = GestureDragging
	i.userID = userID
	return true
}

// EndDrag completes the live drag and returns the dragged user. The caller
// resolves the target against the engine; releasing mid-air with no target
// is the designed way to kick a table occupant back to wait.
func (i *Interactions) EndDrag() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.gesture != GestureDragging {
		return "", false
	}
	userID := i.userID
	i.gesture = GestureIdle
	i.userID = ""
	return userID, true
}

// Arm selects a user for tap-to-assign. Re-arming swaps the selection.
func (i *Interactions) Arm(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gesture = GestureArmed
	i.userID = userID
}

// Disarm cancels the current selection.
func (i *Interactions) Disarm() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gesture = GestureIdle
	i.userID = ""
}

// TapTarget completes a tap-to-assign for the armed user. Returns the user
// the tap applies to, or false when nobody is armed.
func (i *Interactions) TapTarget() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.gesture != GestureArmed {
		return "", false
	}
	userID := i.userID
	i.gesture = GestureIdle
	i.userID = ""
	return userID, true
}

// NormalizeTarget folds a no-target release into the background case and
// rejects malformed table targets before any engine call.
func NormalizeTarget(t Target) (Target, bool) {
	switch t.Kind {
	case TargetTable:
		if !status.ValidTable(t.Table) {
			return Target{}, false
		}
		return t, true
	case TargetNone:
		return Target{Kind: TargetBackground}, true
	default:
		return t, true
	}
}
