package gb

import (
	"fmt"
	"log"
	"os"
	"time"
)

// CpuSM83 is the Game Boy's SM83 (LR35902) CPU core.
//
// References:
// https://gbdev.io/pandocs/CPU_Instruction_Set.html
// https://gbdev.io/gb-opcodes/optables/
type CpuSM83 struct {
	// Registers. The eight 8-bit registers pair up as AF, BC, DE and HL
	// (see registers.go). F holds the flags in its high nibble.
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	Sp uint16 // Stack Pointer
	Pc uint16 // Program Counter

	bus *Bus // Communication bus

	// Internal state
	Ime        bool   // Interrupt master enable
	Halted     bool   // Set by HALT, cleared when an interrupt is pending
	Stopped    bool   // Set by STOP, cleared on user input (out of scope here)
	CycleCount uint64 // Total # of cycles executed by the CPU

	eiPending bool // EI takes effect after the following instruction

	inst   [256]Instruction // Primary opcode table
	instCB [256]Instruction // Extended ($CB-prefixed) opcode table

	Logger *log.Logger // Optional CPU trace logging
}

// Instruction is one entry of the opcode tables. Execute returns any extra
// cycles beyond the base cost (conditional jumps/calls/returns cost more
// when taken).
type Instruction struct {
	Name    string
	Length  byte // Encoded length in bytes, including the opcode
	Cycles  byte // Base cycle cost (the not-taken cost for conditionals)
	Execute func() byte
}

// Cycles charged while halted: the CPU still ticks even though no
// instruction is fetched.
const haltIdleCycles = 4

func NewCpuSM83() *CpuSM83 {
	cpu := &CpuSM83{
		Sp: 0xFFFE,
		Pc: 0x0000,
	}

	cpu.buildInstructionTable()
	cpu.buildInstructionTableCB()

	return cpu
}

// EnableTrace starts logging every executed instruction to a timestamped
// file under ./logs.
func (cpu *CpuSM83) EnableTrace() {
	if err := os.MkdirAll("./logs", 0775); err != nil {
		log.Fatal("Unable to create CPU log directory...\n", err)
	}

	now := time.Now()
	logFile := fmt.Sprintf("./logs/cpu%s.log", now.Format("20060102-150405"))
	f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE, 0664)
	if err != nil {
		log.Fatal("Unable to create CPU log file...\n", err)
	}

	cpu.Logger = log.New(f, "", 0)
}

// Connect the CPU to a 16-bit address bus.
func (cpu *CpuSM83) ConnectBus(b *Bus) { cpu.bus = b }

// Read from the attached bus.
func (cpu *CpuSM83) read(addr uint16) byte {
	return cpu.bus.Read(addr)
}

// Write to the attached bus.
func (cpu *CpuSM83) write(addr uint16, data byte) {
	cpu.bus.Write(addr, data)
}

// Read a word from memory (little endian order).
func (cpu *CpuSM83) readWord(addr uint16) uint16 {
	lo := cpu.read(addr)
	hi := cpu.read(addr + 1)

	return (uint16(hi) << 8) | uint16(lo)
}

// Write a word to memory (little endian order).
func (cpu *CpuSM83) writeWord(addr uint16, data uint16) {
	cpu.write(addr, byte(data))
	cpu.write(addr+1, byte(data>>8))
}

// Read the next instruction byte and advance the program counter.
func (cpu *CpuSM83) fetchByte() byte {
	b := cpu.read(cpu.Pc)
	cpu.Pc++
	return b
}

// Read the next instruction word (little endian) and advance the program
// counter.
func (cpu *CpuSM83) fetchWord() uint16 {
	lo := cpu.fetchByte()
	hi := cpu.fetchByte()
	return (uint16(hi) << 8) | uint16(lo)
}

// Functions to push and pop words from the stack. The stack grows downward.
func (cpu *CpuSM83) stackPush(data uint16) {
	cpu.Sp--
	cpu.write(cpu.Sp, byte(data>>8))
	cpu.Sp--
	cpu.write(cpu.Sp, byte(data))
}

func (cpu *CpuSM83) stackPop() uint16 {
	lo := cpu.read(cpu.Sp)
	cpu.Sp++
	hi := cpu.read(cpu.Sp)
	cpu.Sp++

	return (uint16(hi) << 8) | uint16(lo)
}

////////////////////////////////////////////////////////////////
// Decode errors

// OpcodeError is returned by Step when the fetched opcode byte has no
// defined instruction. Execution must stop rather than guess.
type OpcodeError struct {
	Addr   uint16 // Address of the offending opcode
	Opcode byte   // The undefined opcode byte
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("undefined opcode %#02x at $%04X", e.Opcode, e.Addr)
}

////////////////////////////////////////////////////////////////
// Execution

// Step fetches, decodes and executes a single instruction, returning its
// cycle cost. Conditional instructions report their actual (taken or
// not-taken) cost, since the returned count drives PPU timing.
//
// While halted or stopped no instruction is fetched; a nominal cost is
// still returned so the rest of the machine keeps ticking.
func (cpu *CpuSM83) Step() (int, error) {
	if cpu.Halted || cpu.Stopped {
		cpu.CycleCount += haltIdleCycles
		return haltIdleCycles, nil
	}

	// EI enables interrupts after the instruction that follows it.
	enableIme := cpu.eiPending
	cpu.eiPending = false

	opAddr := cpu.Pc
	opcode := cpu.fetchByte()

	inst := cpu.inst[opcode]
	if inst.Execute == nil {
		return 0, &OpcodeError{Addr: opAddr, Opcode: opcode}
	}

	extraCycles := inst.Execute()
	cycles := int(inst.Cycles) + int(extraCycles)
	cpu.CycleCount += uint64(cycles)

	if enableIme {
		cpu.Ime = true
	}

	if cpu.Logger != nil {
		cpu.Logger.Printf("%04X  %02X - %-12s A:%02X F:%02X BC:%04X DE:%04X HL:%04X SP:%04X CYC:%d",
			opAddr, opcode, inst.Name, cpu.A, cpu.F, cpu.BC(), cpu.DE(), cpu.HL(), cpu.Sp, cpu.CycleCount)
	}

	return cycles, nil
}

// ServiceInterrupt redirects execution to an interrupt vector: the current
// program counter is pushed to the stack, further interrupts are disabled,
// and execution resumes at the vector. A halted CPU wakes up.
func (cpu *CpuSM83) ServiceInterrupt(vector uint16) {
	cpu.Ime = false
	cpu.Halted = false
	cpu.eiPending = false

	cpu.stackPush(cpu.Pc)
	cpu.Pc = vector
}

// Reset puts the CPU into its post-bootstrap state. When withBoot is set the
// program counter starts at $0000 so the bootstrap ROM runs first; otherwise
// registers take the values the bootstrap would have left behind and
// execution starts at the cartridge entry point.
func (cpu *CpuSM83) Reset(withBoot bool) {
	cpu.Ime = false
	cpu.Halted = false
	cpu.Stopped = false
	cpu.eiPending = false
	cpu.CycleCount = 0

	if withBoot {
		cpu.A, cpu.F = 0x00, 0x00
		cpu.B, cpu.C = 0x00, 0x00
		cpu.D, cpu.E = 0x00, 0x00
		cpu.H, cpu.L = 0x00, 0x00
		cpu.Sp = 0xFFFE
		cpu.Pc = 0x0000
		return
	}

	cpu.SetAF(0x01B0)
	cpu.SetBC(0x0013)
	cpu.SetDE(0x00D8)
	cpu.SetHL(0x014D)
	cpu.Sp = 0xFFFE
	cpu.Pc = 0x0100
}

////////////////////////////////////////////////////////////////
// ALU helpers. Half-carry and carry come from actual bit-level arithmetic:
// the nibble sum for H, the 9-bit (or 17-bit) wide sum for C.

func (cpu *CpuSM83) addA(n byte, withCarry bool) {
	var carry byte
	if withCarry && cpu.getFlag(FlagC) != 0 {
		carry = 1
	}

	halfSum := (cpu.A & 0x0F) + (n & 0x0F) + carry
	sum := uint16(cpu.A) + uint16(n) + uint16(carry)

	cpu.setFlag(FlagZ, byte(sum) == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, halfSum > 0x0F)
	cpu.setFlag(FlagC, sum > 0xFF)

	cpu.A = byte(sum)
}

// subNoWriteback computes A-n(-carry) and sets flags without storing the
// result. CP is exactly this.
func (cpu *CpuSM83) subNoWriteback(n byte, withCarry bool) byte {
	var carry byte
	if withCarry && cpu.getFlag(FlagC) != 0 {
		carry = 1
	}

	halfDiff := int(cpu.A&0x0F) - int(n&0x0F) - int(carry)
	diff := int(cpu.A) - int(n) - int(carry)

	cpu.setFlag(FlagZ, byte(diff) == 0)
	cpu.setFlag(FlagN, true)
	cpu.setFlag(FlagH, halfDiff < 0)
	cpu.setFlag(FlagC, diff < 0)

	return byte(diff)
}

func (cpu *CpuSM83) subA(n byte, withCarry bool) {
	cpu.A = cpu.subNoWriteback(n, withCarry)
}

func (cpu *CpuSM83) andA(n byte) {
	cpu.A &= n

	cpu.setFlag(FlagZ, cpu.A == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, true)
	cpu.setFlag(FlagC, false)
}

func (cpu *CpuSM83) orA(n byte) {
	cpu.A |= n

	cpu.setFlag(FlagZ, cpu.A == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, false)
}

func (cpu *CpuSM83) xorA(n byte) {
	cpu.A ^= n

	cpu.setFlag(FlagZ, cpu.A == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, false)
}

// inc8/dec8 leave the carry flag untouched.
func (cpu *CpuSM83) inc8(x byte) byte {
	result := x + 1

	cpu.setFlag(FlagZ, result == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, x&0x0F == 0x0F)

	return result
}

func (cpu *CpuSM83) dec8(x byte) byte {
	result := x - 1

	cpu.setFlag(FlagZ, result == 0)
	cpu.setFlag(FlagN, true)
	cpu.setFlag(FlagH, x&0x0F == 0x00)

	return result
}

// addHL adds into HL. The zero flag is unaffected; H is the carry out of
// bit 11.
func (cpu *CpuSM83) addHL(n uint16) {
	hl := cpu.HL()

	halfSum := uint32(hl&0x0FFF) + uint32(n&0x0FFF)
	sum := uint32(hl) + uint32(n)

	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, halfSum > 0x0FFF)
	cpu.setFlag(FlagC, sum > 0xFFFF)

	cpu.SetHL(uint16(sum))
}

// addSPOffset computes SP plus a signed 8-bit immediate, shared by
// ADD SP,e8 and LD HL,SP+e8. Flags come from the unsigned low-byte addition.
func (cpu *CpuSM83) addSPOffset(n byte) uint16 {
	offset := int8(n)
	result := uint16(int32(cpu.Sp) + int32(offset))

	cpu.setFlag(FlagZ, false)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, (cpu.Sp&0x0F)+(uint16(n)&0x0F) > 0x0F)
	cpu.setFlag(FlagC, (cpu.Sp&0xFF)+uint16(n) > 0xFF)

	return result
}

// daa applies binary-coded-decimal correction to A after an addition or
// subtraction, driven by the N/H/C flags.
func (cpu *CpuSM83) daa() {
	a := uint16(cpu.A)

	if cpu.getFlag(FlagN) == 0 {
		if cpu.getFlag(FlagC) != 0 || a > 0x99 {
			a += 0x60
			cpu.setFlag(FlagC, true)
		}
		if cpu.getFlag(FlagH) != 0 || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if cpu.getFlag(FlagC) != 0 {
			a -= 0x60
		}
		if cpu.getFlag(FlagH) != 0 {
			a -= 0x06
		}
	}

	cpu.A = byte(a)
	cpu.setFlag(FlagZ, cpu.A == 0)
	cpu.setFlag(FlagH, false)
}

////////////////////////////////////////////////////////////////
// Rotate/shift helpers, shared between the $CB instructions and the
// four A-register rotates. All of them set Z from the result; the A-register
// forms (RLCA, RLA, RRCA, RRA) clear Z afterwards.

// Left rotate, old bit 7 into the carry and bit 0.
func (cpu *CpuSM83) rlc(x byte) byte {
	msb := x >> 7
	rot := (x << 1) | msb

	cpu.setFlag(FlagZ, rot == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, msb != 0)

	return rot
}

// Left rotate through the carry flag.
func (cpu *CpuSM83) rl(x byte) byte {
	var carry byte
	if cpu.getFlag(FlagC) != 0 {
		carry = 1
	}

	rot := (x << 1) | carry

	cpu.setFlag(FlagZ, rot == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, x&0x80 != 0)

	return rot
}

// Right rotate, old bit 0 into the carry and bit 7.
func (cpu *CpuSM83) rrc(x byte) byte {
	lsb := x & 0x01
	rot := (x >> 1) | (lsb << 7)

	cpu.setFlag(FlagZ, rot == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, lsb != 0)

	return rot
}

// Right rotate through the carry flag.
func (cpu *CpuSM83) rr(x byte) byte {
	var carry byte
	if cpu.getFlag(FlagC) != 0 {
		carry = 0x80
	}

	rot := (x >> 1) | carry

	cpu.setFlag(FlagZ, rot == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, x&0x01 != 0)

	return rot
}

// Shift left, bit 0 cleared.
func (cpu *CpuSM83) sla(x byte) byte {
	shift := x << 1

	cpu.setFlag(FlagZ, shift == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, x&0x80 != 0)

	return shift
}

// Shift right arithmetic, bit 7 preserved.
func (cpu *CpuSM83) sra(x byte) byte {
	shift := (x >> 1) | (x & 0x80)

	cpu.setFlag(FlagZ, shift == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, x&0x01 != 0)

	return shift
}

// Swap the upper and lower nibbles.
func (cpu *CpuSM83) swap(x byte) byte {
	result := (x << 4) | (x >> 4)

	cpu.setFlag(FlagZ, result == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, false)

	return result
}

// Shift right logical, bit 7 cleared.
func (cpu *CpuSM83) srl(x byte) byte {
	shift := x >> 1

	cpu.setFlag(FlagZ, shift == 0)
	cpu.setFlag(FlagN, false)
	cpu.setFlag(FlagH, false)
	cpu.setFlag(FlagC, x&0x01 != 0)

	return shift
}
