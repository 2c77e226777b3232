package server

// Slot mirrors proto/classvm/v1.Slot: a tagged stack word marshaled over
// the wire by jsonCodec.
type Slot struct {
	Tag   uint32 `json:"tag"`
	Value uint64 `json:"value"`
}

// InvokeRequest mirrors proto/classvm/v1.InvokeRequest.
type InvokeRequest struct {
	ThreadID   uint64 `json:"thread_id"`
	Loader     uint64 `json:"loader"`
	ClassName  string `json:"class_name"`
	MethodName string `json:"method_name"`
	MethodSpec string `json:"method_spec"`
	This       uint64 `json:"this"`
	Args       []Slot `json:"args"`
}

// InvokeResponse mirrors proto/classvm/v1.InvokeResponse.
type InvokeResponse struct {
	Result       []Slot `json:"result"`
	Exception    bool   `json:"exception"`
	ExceptionRef uint64 `json:"exception_ref"`
}

// WalkStackRequest mirrors proto/classvm/v1.WalkStackRequest.
type WalkStackRequest struct {
	ThreadID uint64 `json:"thread_id"`
}

// StackFrame mirrors proto/classvm/v1.StackFrame.
type StackFrame struct {
	Depth      int32  `json:"depth"`
	ClassName  string `json:"class_name"`
	MethodName string `json:"method_name"`
	MethodSpec string `json:"method_spec"`
	IP         int32  `json:"ip"`
}

// WalkStackResponse mirrors proto/classvm/v1.WalkStackResponse.
type WalkStackResponse struct {
	Frames []StackFrame `json:"frames"`
}
