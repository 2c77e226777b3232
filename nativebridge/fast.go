package nativebridge

import "github.com/chazu/classvm/interp"

// fastCall implements the FastNative path (§4.5): arguments marshal
// into a flat word array with objects passed as raw handles, and the
// function is invoked directly with no idle-state transition — a fast
// native must not block or trigger GC, so there is nothing to make the
// thread's registers safe for.
func fastCall(t *interp.Thread, m *interp.Method, nd *interp.NativeDescriptor) ([]interp.Slot, error) {
	this, params := paramWords(t, m)

	args := make([]uint64, 0, 2+len(params))
	args = append(args, uint64(t.ID), thisOrClassWord(m, this))
	args = append(args, params...)

	raw, err := t.Machine().Call(nd.Func, args, nd.ParamTags, len(args), nd.ArgTableSize, nd.ReturnCode)
	if err != nil {
		return nil, err
	}
	return typeResult(raw, nd.ReturnCode), nil
}
