package gb

import (
	"bytes"
	"fmt"
)

// Disassemble the loaded SM83 program into human-readable CPU instructions
// mapped to their respective memory address.
//
// The SM83 encodes operands in the opcode, so the table's Name already
// carries the mnemonic shape; only immediate bytes need reading out.
func (cpu *CpuSM83) Disassemble(startAddr, endAddr uint16) map[uint16]string {
	// Current CPU instruction, disassembled
	var lineDiss bytes.Buffer

	// this needs to be bigger than uint16, to determine when larger than endAddr
	var addr uint32 = uint32(startAddr)

	disassembly := make(map[uint16]string)

	for addr <= uint32(endAddr) {
		// Instruction memory address
		lineAddr := uint16(addr)
		lineDiss.WriteString(fmt.Sprintf("$%04X: ", lineAddr))

		opcode := cpu.read(uint16(addr))
		addr++

		inst := cpu.inst[opcode]
		if inst.Execute == nil {
			lineDiss.WriteString(fmt.Sprintf("??? ($%02X)", opcode))
			disassembly[lineAddr] = lineDiss.String()
			lineDiss.Reset()
			continue
		}

		if opcode == 0xCB {
			// The extended table names the whole instruction.
			cbOpcode := cpu.read(uint16(addr))
			addr++
			lineDiss.WriteString(cpu.instCB[cbOpcode].Name)
		} else {
			switch inst.Length {
			case 1:
				lineDiss.WriteString(inst.Name)
			case 2:
				value := cpu.read(uint16(addr))
				addr++
				lineDiss.WriteString(fmt.Sprintf("%s [$%02X]", inst.Name, value))
			case 3:
				lo := cpu.read(uint16(addr))
				addr++
				hi := cpu.read(uint16(addr))
				addr++
				lineDiss.WriteString(fmt.Sprintf("%s [$%04X]", inst.Name, uint16(hi)<<8|uint16(lo)))
			}
		}

		// Add to map
		disassembly[lineAddr] = lineDiss.String()
		lineDiss.Reset()
	}

	return disassembly
}
