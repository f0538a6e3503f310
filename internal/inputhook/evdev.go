package inputhook

import (
	"bytes"
	"encoding/binary"
)

// inputEvent mirrors struct input_event on 64-bit Linux:
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// DefaultEvdevDevices matches the mouse event nodes udev creates
var DefaultEvdevDevices = []string{"/dev/input/by-id/*-event-mouse"}

// decodeEvdev walks a buffer of raw input_event records and emits the
// native code of every key press and release. Autorepeat (value 2) and
// non-key events are skipped, as are trailing partial records.
func decodeEvdev(buf []byte, emit func(NativeCode)) {
	reader := bytes.NewReader(nil)
	for off := 0; off+inputEventSize <= len(buf); off += inputEventSize {
		reader.Reset(buf[off : off+inputEventSize])
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			continue
		}
		if ev.Type != evKey || (ev.Value != 0 && ev.Value != 1) {
			continue
		}
		emit(EvdevCode(ev.Code, ev.Value == 1))
	}
}
