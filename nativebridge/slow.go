package nativebridge

import (
	"unsafe"

	"github.com/chazu/classvm/interp"
)

// slowCall implements the slow native path (§4.5): object arguments are
// indirected through local references (pointers into the operand
// stack, so a moving GC observed during the call can update them in
// place), the thread is marked idle for the duration of the blocking
// system.call trampoline, and every local reference taken for the call
// is disposed once it returns.
func slowCall(t *interp.Thread, m *interp.Method, nd *interp.NativeDescriptor) ([]interp.Slot, error) {
	this, params := paramWords(t, m)

	var refs []*interp.Ref
	release := func(ref *interp.Ref, err error) (uint64, error) {
		if err != nil {
			return 0, err
		}
		refs = append(refs, ref)
		return uint64(uintptr(unsafe.Pointer(ref))), nil
	}
	defer func() {
		for _, r := range refs {
			t.DisposeLocalReference(r)
		}
	}()

	thisRef, err := t.MakeLocalReference(interp.Ref(thisOrClassWord(m, this)))
	thisWord, err := release(thisRef, err)
	if err != nil {
		return nil, err
	}

	words := make([]uint64, len(params))
	for i, pc := range m.ParamCodes {
		if pc != interp.ReturnObject {
			words[i] = params[i]
			continue
		}
		ref, rerr := t.MakeLocalReference(interp.Ref(params[i]))
		w, rerr := release(ref, rerr)
		if rerr != nil {
			return nil, rerr
		}
		words[i] = w
	}

	args := make([]uint64, 0, 2+len(words))
	args = append(args, uint64(t.ID), thisWord)
	args = append(args, words...)

	t.SetIdle(true)
	raw, callErr := t.Machine().Call(nd.Func, args, nd.ParamTags, len(args), nd.ArgTableSize, nd.ReturnCode)
	t.SetIdle(false)
	if callErr != nil {
		return nil, callErr
	}
	return typeResult(raw, nd.ReturnCode), nil
}
