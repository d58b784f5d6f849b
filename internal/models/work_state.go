package models

import "fmt"

// WorkState is the device operating mode sent on the "work" topic.
type WorkState int

const (
	WorkStop WorkState = iota
	WorkStart
	WorkRestart
	WorkDisplayReset
	WorkRazgon
	WorkRazgonOff
	WorkOtborOff
	WorkOtborGolovPeriodic
	WorkOtborTela
	WorkOtborGolovDrip
	WorkOtborPodgolovniki
)

var workStateNames = map[WorkState]string{
	WorkStop:               "стоп",
	WorkStart:              "старт",
	WorkRestart:            "рестарт",
	WorkDisplayReset:       "сброс отображения",
	WorkRazgon:             "разгон",
	WorkRazgonOff:          "выключение разгона",
	WorkOtborOff:           "отбор выключен",
	WorkOtborGolovPeriodic: "отбор голов периодикой",
	WorkOtborTela:          "отбор тела",
	WorkOtborGolovDrip:     "отбор голов покапельно",
	WorkOtborPodgolovniki:  "отбор подголовников",
}

// ParseWorkState converts a wire code into a WorkState.
func ParseWorkState(code int) (WorkState, error) {
	ws := WorkState(code)
	if !ws.Valid() {
		return 0, fmt.Errorf("unknown work state %d", code)
	}
	return ws, nil
}

func (w WorkState) Valid() bool {
	_, ok := workStateNames[w]
	return ok
}

// String returns the display name the device publishes on flag_otb.
func (w WorkState) String() string {
	if name, ok := workStateNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(w))
}

type WorkStateInfo struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// WorkStates lists every state in wire order.
func WorkStates() []WorkStateInfo {
	states := make([]WorkStateInfo, 0, len(workStateNames))
	for ws := WorkStop; ws <= WorkOtborPodgolovniki; ws++ {
		states = append(states, WorkStateInfo{Code: int(ws), Name: ws.String()})
	}
	return states
}
