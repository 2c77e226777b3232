package interp

// Opcode routing into the four dispatch arms files. The JVM's opcode
// numbering interleaves groups, so routing is by exact opcode, not by
// numeric range, except where a group genuinely is contiguous.

func isConstOrLocalOpcode(op Opcode) bool {
	switch {
	case op <= OpLdc2W: // nop .. ldc2_w: constants
		return true
	case op >= OpIload && op <= OpAload3: // scalar loads
		return true
	case op >= OpIstore && op <= OpAstore3: // scalar stores
		return true
	case op >= OpIadd && op <= OpDcmpg: // arithmetic, iinc, conversions, compares
		return true
	}
	return false
}

func isControlOpcode(op Opcode) bool {
	switch {
	case op >= OpPop && op <= OpSwap: // stack reshuffling
		return true
	case op >= OpIfeq && op <= OpLookupswitch: // branches, goto/jsr/ret, switches
		return true
	case op == OpIfnull, op == OpIfnonnull, op == OpGotoW, op == OpJsrW:
		return true
	case op == OpAthrow:
		return true
	case op == OpMonitorenter, op == OpMonitorexit:
		return true
	case op == OpWide:
		return true
	}
	return false
}

func isInvokeOpcode(op Opcode) bool {
	switch {
	case op >= OpIreturn && op <= OpReturn: // returns
		return true
	case op >= OpInvokevirtual && op <= OpInvokeinterface:
		return true
	case op == OpImpdep1:
		return true
	}
	return false
}

func isArrayOrFieldOpcode(op Opcode) bool {
	switch {
	case op >= OpIaload && op <= OpSaload: // array loads
		return true
	case op >= OpIastore && op <= OpSastore: // array stores
		return true
	case op >= OpGetstatic && op <= OpPutfield:
		return true
	case op == OpNew, op == OpNewarray, op == OpAnewarray, op == OpMultianewarray:
		return true
	case op == OpArraylength:
		return true
	case op == OpCheckcast, op == OpInstanceof:
		return true
	}
	return false
}
