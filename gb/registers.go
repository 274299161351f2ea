package gb

////////////////////////////////////////////////////////////////
// Status Flags
type FlagSM83 byte // SM83 flag register bit

// Only the high nibble of F holds flags. The low nibble always reads zero.
const (
	FlagC FlagSM83 = 1 << (iota + 4) // Carry
	FlagH                            // Half-carry (carry out of bit 3)
	FlagN                            // Subtract
	FlagZ                            // Zero
)

// 16-bit register pair accessors. The SM83 exposes its eight 8-bit registers
// as the pairs AF, BC, DE and HL.

func (cpu *CpuSM83) AF() uint16 { return uint16(cpu.A)<<8 | uint16(cpu.F) }
func (cpu *CpuSM83) BC() uint16 { return uint16(cpu.B)<<8 | uint16(cpu.C) }
func (cpu *CpuSM83) DE() uint16 { return uint16(cpu.D)<<8 | uint16(cpu.E) }
func (cpu *CpuSM83) HL() uint16 { return uint16(cpu.H)<<8 | uint16(cpu.L) }

// Writes through SetAF keep the low nibble of F clear.
func (cpu *CpuSM83) SetAF(data uint16) {
	cpu.A = byte(data >> 8)
	cpu.F = byte(data) & 0xF0
}

func (cpu *CpuSM83) SetBC(data uint16) {
	cpu.B = byte(data >> 8)
	cpu.C = byte(data)
}

func (cpu *CpuSM83) SetDE(data uint16) {
	cpu.D = byte(data >> 8)
	cpu.E = byte(data)
}

func (cpu *CpuSM83) SetHL(data uint16) {
	cpu.H = byte(data >> 8)
	cpu.L = byte(data)
}

// Convenience functions used to get and set CPU flags.
func (cpu *CpuSM83) getFlag(f FlagSM83) byte {
	return cpu.F & byte(f)
}

func (cpu *CpuSM83) setFlag(f FlagSM83, b bool) {
	if b {
		cpu.F |= byte(f)
	} else {
		cpu.F &^= byte(f)
	}
}
