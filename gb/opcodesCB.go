package gb

import "fmt"

// The $CB-prefixed table is fully regular: the top two bits pick the
// operation group, bits 5-3 the rotate kind or bit index, bits 2-0 the
// operand. All 256 entries are generated from that encoding.

func (cpu *CpuSM83) buildInstructionTableCB() {
	regs := cpu.operands8()

	rotOps := [8]struct {
		name string
		exec func(n byte) byte
	}{
		{"RLC", cpu.rlc},
		{"RRC", cpu.rrc},
		{"RL", cpu.rl},
		{"RR", cpu.rr},
		{"SLA", cpu.sla},
		{"SRA", cpu.sra},
		{"SWAP", cpu.swap},
		{"SRL", cpu.srl},
	}

	for i := 0; i < 256; i++ {
		opcode := byte(i)
		reg := regs[opcode&0x07]
		bit := (opcode >> 3) & 0x07

		// Register forms cost 8 cycles. The (HL) forms cost 16, except
		// BIT which only reads memory and costs 12.
		cycles := byte(8)
		if reg.mem {
			cycles = 16
			if opcode>>6 == 1 {
				cycles = 12
			}
		}

		switch opcode >> 6 {
		case 0: // rotates, shifts, and swap
			rot := rotOps[bit]
			cpu.instCB[opcode] = Instruction{
				Name:   fmt.Sprintf("%s %s", rot.name, reg.name),
				Length: 2,
				Cycles: cycles,
				Execute: func() byte {
					reg.set(rot.exec(reg.get()))
					return 0
				},
			}

		case 1: // BIT b,r — test only, carry untouched
			cpu.instCB[opcode] = Instruction{
				Name:   fmt.Sprintf("BIT %d,%s", bit, reg.name),
				Length: 2,
				Cycles: cycles,
				Execute: func() byte {
					cpu.setFlag(FlagZ, reg.get()&(1<<bit) == 0)
					cpu.setFlag(FlagN, false)
					cpu.setFlag(FlagH, true)
					return 0
				},
			}

		case 2: // RES b,r — no flags
			cpu.instCB[opcode] = Instruction{
				Name:   fmt.Sprintf("RES %d,%s", bit, reg.name),
				Length: 2,
				Cycles: cycles,
				Execute: func() byte {
					reg.set(reg.get() &^ (1 << bit))
					return 0
				},
			}

		case 3: // SET b,r — no flags
			cpu.instCB[opcode] = Instruction{
				Name:   fmt.Sprintf("SET %d,%s", bit, reg.name),
				Length: 2,
				Cycles: cycles,
				Execute: func() byte {
					reg.set(reg.get() | (1 << bit))
					return 0
				},
			}
		}
	}
}
