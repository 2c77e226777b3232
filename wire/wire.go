// Package wire serializes interpreter snapshots to CBOR, adapted from
// the teacher's vm/dist/wire.go (canonical-mode CBOR encode/decode pairs
// per wire type). Where the teacher wired a Chunk/SyncRequest/
// SyncResponse family for its distribution protocol, this package wires
// the debugger/facade's own wire types: a captured stack trace
// (interp.TraceFrame per frame), a class-init-list snapshot, and a
// native method descriptor, all built from data the Processor Facade
// (interp.Thread.WalkStack/VisitObjects) already exposes.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/classvm/interp"
)

// cborEncMode is canonical (deterministic, sorted-map-key) CBOR encoding,
// the same mode the teacher's dist package standardizes on so that two
// encodings of equal values always produce byte-identical output.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// TraceFrame is one frame of a serialized stack-trace snapshot: a
// TraceFrame with the method identity broken out into wire-safe strings
// rather than a live *interp.Method pointer.
type TraceFrame struct {
	Class  string `cbor:"class"`
	Method string `cbor:"method"`
	Spec   string `cbor:"spec"`
	IP     int    `cbor:"ip"`
}

// StackTrace is a full captured trace, outermost frame last, matching
// interp.Thread.CaptureTrace's ordering (current frame first).
type StackTrace struct {
	ThreadID uint64       `cbor:"thread_id"`
	Frames   []TraceFrame `cbor:"frames"`
}

// FromTrace converts an interp.TraceFrame slice (as produced by
// Thread.CaptureTrace, or accumulated from Thread.WalkStack) into the
// wire representation.
func FromTrace(threadID uint64, frames []interp.TraceFrame) StackTrace {
	out := StackTrace{ThreadID: threadID, Frames: make([]TraceFrame, len(frames))}
	for i, f := range frames {
		var class, name, spec string
		if f.Method != nil {
			name, spec = f.Method.Name, f.Method.Spec
			if f.Method.Class != nil {
				class = f.Method.Class.Name
			}
		}
		out.Frames[i] = TraceFrame{Class: class, Method: name, Spec: spec, IP: f.IP}
	}
	return out
}

// MarshalStackTrace serializes a StackTrace to canonical CBOR bytes.
func MarshalStackTrace(s *StackTrace) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalStackTrace deserializes a StackTrace from CBOR bytes.
func UnmarshalStackTrace(data []byte) (*StackTrace, error) {
	var s StackTrace
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("wire: unmarshal stack trace: %w", err)
	}
	return &s, nil
}

// ClassInitSnapshot is a wire-safe capture of a thread's class-init list
// (interp.ClassInitList), most recently pushed class first.
type ClassInitSnapshot struct {
	ThreadID uint64   `cbor:"thread_id"`
	Classes  []string `cbor:"classes"`
}

// FromClassInitList walks l from its top (most recently pushed) down,
// collecting class names for the wire snapshot, without disturbing the
// live list.
func FromClassInitList(threadID uint64, l *interp.ClassInitList) ClassInitSnapshot {
	snap := ClassInitSnapshot{ThreadID: threadID}
	if l == nil {
		return snap
	}
	l.Each(func(c *interp.Class) {
		snap.Classes = append(snap.Classes, c.Name)
	})
	return snap
}

// MarshalClassInitSnapshot serializes a ClassInitSnapshot to CBOR bytes.
func MarshalClassInitSnapshot(s *ClassInitSnapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalClassInitSnapshot deserializes a ClassInitSnapshot from CBOR bytes.
func UnmarshalClassInitSnapshot(data []byte) (*ClassInitSnapshot, error) {
	var s ClassInitSnapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("wire: unmarshal class-init snapshot: %w", err)
	}
	return &s, nil
}

// NativeDescriptor is a wire-safe capture of an interp.NativeDescriptor,
// used by the classcache package to persist resolved native bindings
// across process restarts (a raw uintptr is not itself meaningful across
// restarts, so Func is not recorded and is re-resolved on load; the
// cached fields are the parsed ABI shape, which is stable).
type NativeDescriptor struct {
	ParamTags    []uint8 `cbor:"param_tags"`
	ArgTableSize int     `cbor:"arg_table_size"`
	ReturnCode   uint8   `cbor:"return_code"`
	Fast         bool    `cbor:"fast"`
}

// FromNativeDescriptor converts an interp.NativeDescriptor to its wire form.
func FromNativeDescriptor(nd *interp.NativeDescriptor) NativeDescriptor {
	tags := make([]uint8, len(nd.ParamTags))
	for i, t := range nd.ParamTags {
		tags[i] = uint8(t)
	}
	return NativeDescriptor{
		ParamTags:    tags,
		ArgTableSize: nd.ArgTableSize,
		ReturnCode:   uint8(nd.ReturnCode),
		Fast:         nd.Fast,
	}
}

// MarshalNativeDescriptor serializes a NativeDescriptor to CBOR bytes.
func MarshalNativeDescriptor(nd *NativeDescriptor) ([]byte, error) {
	return cborEncMode.Marshal(nd)
}

// UnmarshalNativeDescriptor deserializes a NativeDescriptor from CBOR bytes.
func UnmarshalNativeDescriptor(data []byte) (*NativeDescriptor, error) {
	var nd NativeDescriptor
	if err := cbor.Unmarshal(data, &nd); err != nil {
		return nil, fmt.Errorf("wire: unmarshal native descriptor: %w", err)
	}
	return &nd, nil
}
