package main

import (
	"fmt"
	"strings"

	"github.com/chazu/classvm/interp"
)

// operandWidth reports how many bytes of operand follow op's opcode
// byte, for every opcode except tableswitch/lookupswitch/wide, which
// carry variable-length operands: disassemble sizes wide itself and
// stops at a switch without decoding it.
func operandWidth(op interp.Opcode) int {
	switch op {
	case interp.OpBipush, interp.OpLdc, interp.OpIload, interp.OpLload, interp.OpFload,
		interp.OpDload, interp.OpAload, interp.OpIstore, interp.OpLstore, interp.OpFstore,
		interp.OpDstore, interp.OpAstore, interp.OpRet, interp.OpNewarray:
		return 1
	case interp.OpSipush, interp.OpLdcW, interp.OpLdc2W, interp.OpIinc, interp.OpGetstatic,
		interp.OpPutstatic, interp.OpGetfield, interp.OpPutfield, interp.OpInvokevirtual,
		interp.OpInvokespecial, interp.OpInvokestatic, interp.OpNew, interp.OpAnewarray,
		interp.OpCheckcast, interp.OpInstanceof,
		interp.OpIfeq, interp.OpIfne, interp.OpIflt, interp.OpIfge, interp.OpIfgt, interp.OpIfle,
		interp.OpIfIcmpeq, interp.OpIfIcmpne, interp.OpIfIcmplt, interp.OpIfIcmpge,
		interp.OpIfIcmpgt, interp.OpIfIcmple, interp.OpIfAcmpeq, interp.OpIfAcmpne,
		interp.OpGoto, interp.OpJsr, interp.OpIfnull, interp.OpIfnonnull:
		return 2
	case interp.OpMultianewarray:
		return 3
	case interp.OpInvokeinterface:
		return 4
	case interp.OpGotoW, interp.OpJsrW:
		return 4
	default:
		return 0
	}
}

// disassemble renders one method's bytecode body as one mnemonic per
// line, offset-prefixed the way javap -c does, and is deliberately
// naive about tableswitch/lookupswitch (reported but not expanded) —
// the rest of the table covers every fixed-width instruction the
// dispatcher implements.
func disassemble(body []byte) string {
	var b strings.Builder
	for ip := 0; ip < len(body); {
		start := ip
		op := interp.Opcode(body[ip])
		ip++
		w := operandWidth(op)
		if op == interp.OpWide && ip < len(body) {
			// wide: modified opcode + u16 index, plus an i16 for iinc.
			w = 3
			if interp.Opcode(body[ip]) == interp.OpIinc {
				w = 5
			}
		}
		var operand []byte
		if ip+w <= len(body) {
			operand = body[ip : ip+w]
		}
		ip += w
		if op == interp.OpTableswitch || op == interp.OpLookupswitch {
			fmt.Fprintf(&b, "%5d: %-16s <variable-length, not decoded>\n", start, op)
			// Skip to end of buffer: without the alignment padding this
			// naive decoder can't find the next real opcode boundary.
			break
		}
		if len(operand) > 0 {
			fmt.Fprintf(&b, "%5d: %-16s % x\n", start, op, operand)
		} else {
			fmt.Fprintf(&b, "%5d: %s\n", start, op)
		}
	}
	return b.String()
}
