package gb

import "fmt"

// The SM83 encodes its operands in the opcode byte itself (8080 style), so
// there is no separate addressing-mode step: each table entry fetches its
// own operands. Large regular blocks of the table (LD r,r', the ALU block,
// the whole $CB table) are generated from the operand encoding instead of
// written out longhand.
//
// Opcode reference: https://gbdev.io/gb-opcodes/optables/

// operand8 is one of the eight 8-bit operand encodings: B, C, D, E, H, L,
// (HL), A — in hardware encoding order.
type operand8 struct {
	name string
	get  func() byte
	set  func(byte)
	mem  bool // operand is (HL), costing an extra memory access
}

func (cpu *CpuSM83) operands8() [8]operand8 {
	return [8]operand8{
		{"B", func() byte { return cpu.B }, func(v byte) { cpu.B = v }, false},
		{"C", func() byte { return cpu.C }, func(v byte) { cpu.C = v }, false},
		{"D", func() byte { return cpu.D }, func(v byte) { cpu.D = v }, false},
		{"E", func() byte { return cpu.E }, func(v byte) { cpu.E = v }, false},
		{"H", func() byte { return cpu.H }, func(v byte) { cpu.H = v }, false},
		{"L", func() byte { return cpu.L }, func(v byte) { cpu.L = v }, false},
		{"(HL)", func() byte { return cpu.read(cpu.HL()) }, func(v byte) { cpu.write(cpu.HL(), v) }, true},
		{"A", func() byte { return cpu.A }, func(v byte) { cpu.A = v }, false},
	}
}

// operand16 is a 16-bit register pair.
type operand16 struct {
	name string
	get  func() uint16
	set  func(uint16)
}

// BC, DE, HL, SP — the pair encoding used by 16-bit loads and arithmetic.
func (cpu *CpuSM83) operands16() [4]operand16 {
	return [4]operand16{
		{"BC", cpu.BC, cpu.SetBC},
		{"DE", cpu.DE, cpu.SetDE},
		{"HL", cpu.HL, cpu.SetHL},
		{"SP", func() uint16 { return cpu.Sp }, func(v uint16) { cpu.Sp = v }},
	}
}

// BC, DE, HL, AF — the pair encoding used by PUSH/POP.
func (cpu *CpuSM83) stackOperands16() [4]operand16 {
	return [4]operand16{
		{"BC", cpu.BC, cpu.SetBC},
		{"DE", cpu.DE, cpu.SetDE},
		{"HL", cpu.HL, cpu.SetHL},
		{"AF", cpu.AF, cpu.SetAF},
	}
}

// condition is one of the four branch conditions: NZ, Z, NC, C — in
// hardware encoding order.
type condition struct {
	name string
	test func() bool
}

func (cpu *CpuSM83) conditions() [4]condition {
	return [4]condition{
		{"NZ", func() bool { return cpu.getFlag(FlagZ) == 0 }},
		{"Z", func() bool { return cpu.getFlag(FlagZ) != 0 }},
		{"NC", func() bool { return cpu.getFlag(FlagC) == 0 }},
		{"C", func() bool { return cpu.getFlag(FlagC) != 0 }},
	}
}

// op registers an instruction with a fixed cycle cost.
func (cpu *CpuSM83) op(opcode byte, name string, length, cycles byte, exec func()) {
	cpu.inst[opcode] = Instruction{name, length, cycles, func() byte {
		exec()
		return 0
	}}
}

// opVar registers an instruction whose Execute reports extra cycles
// (conditional jumps/calls/returns when the branch is taken).
func (cpu *CpuSM83) opVar(opcode byte, name string, length, cycles byte, exec func() byte) {
	cpu.inst[opcode] = Instruction{name, length, cycles, exec}
}

func (cpu *CpuSM83) buildInstructionTable() {
	regs := cpu.operands8()
	pairs := cpu.operands16()
	stackPairs := cpu.stackOperands16()
	conds := cpu.conditions()

	// LD r,r' block: $40-$7F. $76 is HALT, handled below.
	for d := 0; d < 8; d++ {
		for s := 0; s < 8; s++ {
			opcode := byte(0x40 + d*8 + s)
			if opcode == 0x76 {
				continue
			}

			dst, src := regs[d], regs[s]
			cycles := byte(4)
			if dst.mem || src.mem {
				cycles = 8
			}

			cpu.op(opcode, fmt.Sprintf("LD %s,%s", dst.name, src.name), 1, cycles, func() {
				dst.set(src.get())
			})
		}
	}

	// ALU block: $80-$BF, eight operations by eight operands.
	aluOps := [8]struct {
		name string // mnemonic including its operand separator
		exec func(n byte)
	}{
		{"ADD A,", func(n byte) { cpu.addA(n, false) }},
		{"ADC A,", func(n byte) { cpu.addA(n, true) }},
		{"SUB ", func(n byte) { cpu.subA(n, false) }},
		{"SBC A,", func(n byte) { cpu.subA(n, true) }},
		{"AND ", cpu.andA},
		{"XOR ", cpu.xorA},
		{"OR ", cpu.orA},
		{"CP ", func(n byte) { cpu.subNoWriteback(n, false) }},
	}
	for i, alu := range aluOps {
		for s := 0; s < 8; s++ {
			opcode := byte(0x80 + i*8 + s)
			src := regs[s]
			exec := alu.exec

			cycles := byte(4)
			if src.mem {
				cycles = 8
			}

			cpu.op(opcode, alu.name+src.name, 1, cycles, func() {
				exec(src.get())
			})
		}

		// The matching immediate form: $C6, $CE, $D6, $DE, $E6, $EE, $F6, $FE.
		opcode := byte(0xC6 + i*8)
		exec := alu.exec
		cpu.op(opcode, alu.name+"d8", 2, 8, func() {
			exec(cpu.fetchByte())
		})
	}

	// LD r,d8: $06, $0E, ..., $3E. LD (HL),d8 costs 12.
	for r := 0; r < 8; r++ {
		opcode := byte(0x06 + r*8)
		dst := regs[r]

		cycles := byte(8)
		if dst.mem {
			cycles = 12
		}

		cpu.op(opcode, fmt.Sprintf("LD %s,d8", dst.name), 2, cycles, func() {
			dst.set(cpu.fetchByte())
		})
	}

	// INC r / DEC r: $04/$05 + r*8. The (HL) forms cost 12.
	for r := 0; r < 8; r++ {
		reg := regs[r]

		cycles := byte(4)
		if reg.mem {
			cycles = 12
		}

		cpu.op(byte(0x04+r*8), "INC "+reg.name, 1, cycles, func() {
			reg.set(cpu.inc8(reg.get()))
		})
		cpu.op(byte(0x05+r*8), "DEC "+reg.name, 1, cycles, func() {
			reg.set(cpu.dec8(reg.get()))
		})
	}

	// 16-bit loads and arithmetic: one opcode per register pair.
	for i, pair := range pairs {
		pair := pair

		cpu.op(byte(0x01+i*16), fmt.Sprintf("LD %s,d16", pair.name), 3, 12, func() {
			pair.set(cpu.fetchWord())
		})
		// 16-bit INC/DEC wrap and set no flags.
		cpu.op(byte(0x03+i*16), "INC "+pair.name, 1, 8, func() {
			pair.set(pair.get() + 1)
		})
		cpu.op(byte(0x0B+i*16), "DEC "+pair.name, 1, 8, func() {
			pair.set(pair.get() - 1)
		})
		cpu.op(byte(0x09+i*16), "ADD HL,"+pair.name, 1, 8, func() {
			cpu.addHL(pair.get())
		})
	}

	// PUSH/POP: $C5/$C1 + i*16, over BC, DE, HL, AF.
	for i, pair := range stackPairs {
		pair := pair

		cpu.op(byte(0xC5+i*16), "PUSH "+pair.name, 1, 16, func() {
			cpu.stackPush(pair.get())
		})
		// POP AF keeps the low nibble of F clear via SetAF.
		cpu.op(byte(0xC1+i*16), "POP "+pair.name, 1, 12, func() {
			pair.set(cpu.stackPop())
		})
	}

	// Loads between A and memory addressed by a register pair.
	cpu.op(0x02, "LD (BC),A", 1, 8, func() { cpu.write(cpu.BC(), cpu.A) })
	cpu.op(0x12, "LD (DE),A", 1, 8, func() { cpu.write(cpu.DE(), cpu.A) })
	cpu.op(0x0A, "LD A,(BC)", 1, 8, func() { cpu.A = cpu.read(cpu.BC()) })
	cpu.op(0x1A, "LD A,(DE)", 1, 8, func() { cpu.A = cpu.read(cpu.DE()) })

	// Loads between A and a 16-bit immediate address.
	cpu.op(0xEA, "LD (a16),A", 3, 16, func() { cpu.write(cpu.fetchWord(), cpu.A) })
	cpu.op(0xFA, "LD A,(a16)", 3, 16, func() { cpu.A = cpu.read(cpu.fetchWord()) })

	// High-RAM loads: $FF00 + immediate or + C.
	cpu.op(0xE0, "LDH (a8),A", 2, 12, func() { cpu.write(0xFF00+uint16(cpu.fetchByte()), cpu.A) })
	cpu.op(0xF0, "LDH A,(a8)", 2, 12, func() { cpu.A = cpu.read(0xFF00 + uint16(cpu.fetchByte())) })
	cpu.op(0xE2, "LD (C),A", 1, 8, func() { cpu.write(0xFF00+uint16(cpu.C), cpu.A) })
	cpu.op(0xF2, "LD A,(C)", 1, 8, func() { cpu.A = cpu.read(0xFF00 + uint16(cpu.C)) })

	// Load/store through HL with post-increment/decrement.
	cpu.op(0x22, "LD (HL+),A", 1, 8, func() {
		cpu.write(cpu.HL(), cpu.A)
		cpu.SetHL(cpu.HL() + 1)
	})
	cpu.op(0x2A, "LD A,(HL+)", 1, 8, func() {
		cpu.A = cpu.read(cpu.HL())
		cpu.SetHL(cpu.HL() + 1)
	})
	cpu.op(0x32, "LD (HL-),A", 1, 8, func() {
		cpu.write(cpu.HL(), cpu.A)
		cpu.SetHL(cpu.HL() - 1)
	})
	cpu.op(0x3A, "LD A,(HL-)", 1, 8, func() {
		cpu.A = cpu.read(cpu.HL())
		cpu.SetHL(cpu.HL() - 1)
	})

	// Stack pointer loads.
	cpu.op(0xF9, "LD SP,HL", 1, 8, func() { cpu.Sp = cpu.HL() })
	cpu.op(0xF8, "LD HL,SP+e8", 2, 12, func() { cpu.SetHL(cpu.addSPOffset(cpu.fetchByte())) })
	cpu.op(0x08, "LD (a16),SP", 3, 20, func() { cpu.writeWord(cpu.fetchWord(), cpu.Sp) })
	cpu.op(0xE8, "ADD SP,e8", 2, 16, func() { cpu.Sp = cpu.addSPOffset(cpu.fetchByte()) })

	// A-register rotates. Unlike their $CB twins, these always clear Z.
	cpu.op(0x07, "RLCA", 1, 4, func() {
		cpu.A = cpu.rlc(cpu.A)
		cpu.setFlag(FlagZ, false)
	})
	cpu.op(0x17, "RLA", 1, 4, func() {
		cpu.A = cpu.rl(cpu.A)
		cpu.setFlag(FlagZ, false)
	})
	cpu.op(0x0F, "RRCA", 1, 4, func() {
		cpu.A = cpu.rrc(cpu.A)
		cpu.setFlag(FlagZ, false)
	})
	cpu.op(0x1F, "RRA", 1, 4, func() {
		cpu.A = cpu.rr(cpu.A)
		cpu.setFlag(FlagZ, false)
	})

	// Accumulator/flag housekeeping.
	cpu.op(0x27, "DAA", 1, 4, cpu.daa)
	cpu.op(0x2F, "CPL", 1, 4, func() {
		cpu.A ^= 0xFF
		cpu.setFlag(FlagN, true)
		cpu.setFlag(FlagH, true)
	})
	cpu.op(0x37, "SCF", 1, 4, func() {
		cpu.setFlag(FlagN, false)
		cpu.setFlag(FlagH, false)
		cpu.setFlag(FlagC, true)
	})
	cpu.op(0x3F, "CCF", 1, 4, func() {
		cpu.setFlag(FlagN, false)
		cpu.setFlag(FlagH, false)
		cpu.setFlag(FlagC, cpu.getFlag(FlagC) == 0)
	})

	// CPU control.
	cpu.op(0x00, "NOP", 1, 4, func() {})
	cpu.op(0x76, "HALT", 1, 4, func() {
		cpu.Halted = true
		if cpu.Logger != nil && !cpu.Ime {
			cpu.Logger.Printf("HALT with IME disabled at $%04X", cpu.Pc-1)
		}
	})
	cpu.op(0x10, "STOP", 2, 4, func() {
		cpu.fetchByte() // padding byte
		cpu.Stopped = true
	})
	cpu.op(0xF3, "DI", 1, 4, func() {
		cpu.Ime = false
		cpu.eiPending = false
	})
	cpu.op(0xFB, "EI", 1, 4, func() { cpu.eiPending = true })

	// Unconditional jumps/calls/returns.
	cpu.op(0xC3, "JP a16", 3, 16, func() { cpu.Pc = cpu.fetchWord() })
	cpu.op(0xE9, "JP HL", 1, 4, func() { cpu.Pc = cpu.HL() })
	cpu.op(0x18, "JR e8", 2, 12, func() { cpu.jumpRelative(cpu.fetchByte()) })
	cpu.op(0xCD, "CALL a16", 3, 24, func() {
		addr := cpu.fetchWord()
		cpu.stackPush(cpu.Pc)
		cpu.Pc = addr
	})
	cpu.op(0xC9, "RET", 1, 16, func() { cpu.Pc = cpu.stackPop() })
	cpu.op(0xD9, "RETI", 1, 16, func() {
		cpu.Pc = cpu.stackPop()
		cpu.Ime = true
	})

	// Conditional variants. The operand is always fetched so the program
	// counter advances past it; the branch itself costs extra cycles only
	// when taken, and that variable cost is what Step reports.
	for i, cond := range conds {
		cond := cond

		cpu.opVar(byte(0x20+i*8), "JR "+cond.name+",e8", 2, 8, func() byte {
			offset := cpu.fetchByte()
			if !cond.test() {
				return 0
			}
			cpu.jumpRelative(offset)
			return 4
		})
		cpu.opVar(byte(0xC2+i*8), "JP "+cond.name+",a16", 3, 12, func() byte {
			addr := cpu.fetchWord()
			if !cond.test() {
				return 0
			}
			cpu.Pc = addr
			return 4
		})
		cpu.opVar(byte(0xC4+i*8), "CALL "+cond.name+",a16", 3, 12, func() byte {
			addr := cpu.fetchWord()
			if !cond.test() {
				return 0
			}
			cpu.stackPush(cpu.Pc)
			cpu.Pc = addr
			return 12
		})
		cpu.opVar(byte(0xC0+i*8), "RET "+cond.name, 1, 8, func() byte {
			if !cond.test() {
				return 0
			}
			cpu.Pc = cpu.stackPop()
			return 12
		})
	}

	// RST: call to a fixed low-memory vector encoded in the opcode.
	for i := 0; i < 8; i++ {
		opcode := byte(0xC7 + i*8)
		vector := uint16(opcode & 0x38)

		cpu.op(opcode, fmt.Sprintf("RST %02XH", vector), 1, 16, func() {
			cpu.stackPush(cpu.Pc)
			cpu.Pc = vector
		})
	}

	// $CB prefix: the whole cost lives in the extended table entry.
	cpu.opVar(0xCB, "PREFIX CB", 2, 0, func() byte {
		inst := cpu.instCB[cpu.fetchByte()]
		return inst.Cycles + inst.Execute()
	})

	// Everything not assigned above ($D3, $DB, $DD, $E3, $E4, $EB, $EC,
	// $ED, $F4, $FC, $FD) stays a nil entry: a fatal decode error.
}

// jumpRelative adds a signed 8-bit offset to the program counter.
func (cpu *CpuSM83) jumpRelative(offset byte) {
	cpu.Pc = uint16(int32(cpu.Pc) + int32(int8(offset)))
}
