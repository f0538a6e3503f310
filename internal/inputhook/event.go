// Package inputhook moves events from a native global input hook, which
// calls back on its own OS thread, into the frame loop.
package inputhook

// Event is a stable identifier for a recognized input transition
type Event string

const (
	EventLeftDown     Event = "LDown"
	EventLeftUp       Event = "LUp"
	EventRightDown    Event = "RDown"
	EventRightUp      Event = "RUp"
	EventMiddleDown   Event = "MDown"
	EventMiddleUp     Event = "MUp"
	EventUnrecognized Event = ""
)

// NativeCode is a raw event code as delivered by a native hook
type NativeCode uint32

// Windows low-level mouse hook messages
const (
	WMLButtonDown NativeCode = 0x0201
	WMLButtonUp   NativeCode = 0x0202
	WMRButtonDown NativeCode = 0x0204
	WMRButtonUp   NativeCode = 0x0205
	WMMButtonDown NativeCode = 0x0207
	WMMButtonUp   NativeCode = 0x0208
)

// Linux evdev button codes from linux/input-event-codes.h
const (
	evKey     = 0x01
	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112

	evdevFlag NativeCode = 1 << 24
)

// EvdevCode encodes an evdev key transition as a NativeCode
func EvdevCode(code uint16, pressed bool) NativeCode {
	c := evdevFlag | NativeCode(code)<<1
	if pressed {
		c |= 1
	}
	return c
}

var translation = map[NativeCode]Event{
	WMLButtonDown: EventLeftDown,
	WMLButtonUp:   EventLeftUp,
	WMRButtonDown: EventRightDown,
	WMRButtonUp:   EventRightUp,
	WMMButtonDown: EventMiddleDown,
	WMMButtonUp:   EventMiddleUp,

	EvdevCode(btnLeft, true):    EventLeftDown,
	EvdevCode(btnLeft, false):   EventLeftUp,
	EvdevCode(btnRight, true):   EventRightDown,
	EvdevCode(btnRight, false):  EventRightUp,
	EvdevCode(btnMiddle, true):  EventMiddleDown,
	EvdevCode(btnMiddle, false): EventMiddleUp,
}

// Translate maps a native code to its Event. Keyboard, wheel and movement
// codes are not part of the table and come back as (EventUnrecognized, false).
func Translate(code NativeCode) (Event, bool) {
	ev, ok := translation[code]
	if !ok {
		return EventUnrecognized, false
	}
	return ev, true
}
