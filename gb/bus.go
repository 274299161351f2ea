package gb

import (
	"fmt"
	"io/ioutil"
	"log"
	"time"

	"github.com/pkg/errors"
)

// Main bus used by the CPU. Owns the memory map and drives the CPU, PPU and
// interrupt controller in lockstep: every cycle the CPU spends is advanced
// through the PPU before the next instruction runs.
type Bus struct {
	Cpu        *CpuSM83             // Game Boy CPU.
	Ppu        *Ppu                 // Picture processing unit.
	Interrupts *InterruptController // IF/IE registers and dispatch.
	Cart       *Cartridge           // Game Boy cartridge.
	Joypad     *Joypad              // Button state, $FF00.
	Disp       *Display

	wram [0x2000]byte // Work RAM, $C000-$DFFF
	hram [0x7F]byte   // High RAM, $FF80-$FFFE
	io   [0x80]byte   // Backing store for I/O registers the core doesn't model

	bootRom     []byte // 256-byte bootstrap ROM, optional
	bootEnabled bool   // Bootstrap overlay mapped at $0000-$00FF

	dmaSource  byte   // Last value written to the DMA register ($FF46)
	divCounter uint16 // Free-running divider; DIV is its high byte

	ClockCount uint64

	debug bool
}

const (
	// Cartridge ROM
	romMinAddr uint16 = 0x0000
	romMaxAddr uint16 = 0x7FFF

	// Video RAM
	vramMinAddr uint16 = 0x8000
	vramMaxAddr uint16 = 0x9FFF

	// External cartridge RAM. ROM ONLY carts have none; the region reads
	// open bus.
	extRamMinAddr uint16 = 0xA000
	extRamMaxAddr uint16 = 0xBFFF

	// Work RAM
	wramMinAddr uint16 = 0xC000
	wramMaxAddr uint16 = 0xDFFF

	// Echo RAM, mirrors $C000-$DDFF
	echoMinAddr uint16 = 0xE000
	echoMaxAddr uint16 = 0xFDFF
	echoMirror  uint16 = 0x2000 // echo sits this far above the WRAM it mirrors

	// Object attribute memory
	oamMinAddr uint16 = 0xFE00
	oamMaxAddr uint16 = 0xFE9F

	// Unusable region
	unusableMinAddr uint16 = 0xFEA0
	unusableMaxAddr uint16 = 0xFEFF

	// I/O registers
	ioMinAddr uint16 = 0xFF00
	ioMaxAddr uint16 = 0xFF7F

	// High RAM
	hramMinAddr uint16 = 0xFF80
	hramMaxAddr uint16 = 0xFFFE

	// Interrupt enable register
	ieAddr uint16 = 0xFFFF

	// I/O register addresses handled by the bus itself.
	joypadAddr     uint16 = 0xFF00
	divAddr        uint16 = 0xFF04
	ifAddr         uint16 = 0xFF0F
	lcdRegMinAddr  uint16 = 0xFF40
	lcdRegMaxAddr  uint16 = 0xFF4B
	dmaAddr        uint16 = 0xFF46
	bootromOffAddr uint16 = 0xFF50

	dmaTransferLen = 0xA0 // bytes copied by an OAM DMA

	// Cycles consumed dispatching to an interrupt vector.
	interruptServiceCycles = 20

	// One full frame of PPU time.
	frameCycles = scanlineCycles * totalScanlines

	// Frames per second
	fps float64 = 59.73
)

func NewBus(debug, logging bool) *Bus {
	cpu := NewCpuSM83()

	bus := &Bus{
		Cpu:        cpu,
		Ppu:        NewPpu(),
		Interrupts: NewInterruptController(),
		Joypad:     NewJoypad(),
		debug:      debug,
	}

	// Connect this bus to the cpu, and the interrupt controller to the PPU
	// so it can raise V-blank.
	cpu.ConnectBus(bus)
	bus.Ppu.ConnectInterrupts(bus.Interrupts)

	if logging {
		cpu.EnableTrace()
	}

	return bus
}

// Used by the CPU to read data from the main bus at a specified address.
func (b *Bus) Read(addr uint16) byte {
	var data byte = 0xFF

	if addr <= romMaxAddr {
		if b.bootEnabled && addr < bootRomSize {
			data = b.bootRom[addr]
		} else if b.Cart != nil {
			data = b.Cart.read(addr)
		}
	} else if addr >= vramMinAddr && addr <= vramMaxAddr {
		data = b.Ppu.readVram(addr - vramMinAddr)
	} else if addr >= extRamMinAddr && addr <= extRamMaxAddr {
		// no external RAM on ROM ONLY carts
	} else if addr >= wramMinAddr && addr <= wramMaxAddr {
		data = b.wram[addr-wramMinAddr]
	} else if addr >= echoMinAddr && addr <= echoMaxAddr {
		data = b.wram[addr-echoMirror-wramMinAddr]
	} else if addr >= oamMinAddr && addr <= oamMaxAddr {
		data = b.Ppu.readOam(byte(addr - oamMinAddr))
	} else if addr >= unusableMinAddr && addr <= unusableMaxAddr {
		// unusable region reads open bus
	} else if addr >= ioMinAddr && addr <= ioMaxAddr {
		data = b.readIO(addr)
	} else if addr >= hramMinAddr && addr <= hramMaxAddr {
		data = b.hram[addr-hramMinAddr]
	} else if addr == ieAddr {
		data = b.Interrupts.Enable()
	}

	return data
}

// Used by the CPU to write data to the main bus at a specified address.
// Writes to ROM and the unusable region are ignored.
func (b *Bus) Write(addr uint16, data byte) {
	if addr <= romMaxAddr {
		// cartridge ROM is read-only
	} else if addr >= vramMinAddr && addr <= vramMaxAddr {
		b.Ppu.writeVram(addr-vramMinAddr, data)
	} else if addr >= extRamMinAddr && addr <= extRamMaxAddr {
		// no external RAM on ROM ONLY carts
	} else if addr >= wramMinAddr && addr <= wramMaxAddr {
		b.wram[addr-wramMinAddr] = data
	} else if addr >= echoMinAddr && addr <= echoMaxAddr {
		b.wram[addr-echoMirror-wramMinAddr] = data
	} else if addr >= oamMinAddr && addr <= oamMaxAddr {
		b.Ppu.writeOam(byte(addr-oamMinAddr), data)
	} else if addr >= unusableMinAddr && addr <= unusableMaxAddr {
		// unusable region, ignored
	} else if addr >= ioMinAddr && addr <= ioMaxAddr {
		b.writeIO(addr, data)
	} else if addr >= hramMinAddr && addr <= hramMaxAddr {
		b.hram[addr-hramMinAddr] = data
	} else if addr == ieAddr {
		b.Interrupts.SetEnable(data)
	}
}

func (b *Bus) readIO(addr uint16) byte {
	switch {
	case addr == joypadAddr:
		return b.Joypad.Read()
	case addr == divAddr:
		return byte(b.divCounter >> 8)
	case addr == ifAddr:
		return b.Interrupts.Flags()
	case addr == dmaAddr:
		return b.dmaSource
	case addr >= lcdRegMinAddr && addr <= lcdRegMaxAddr:
		return b.Ppu.ReadRegister(addr)
	case addr == bootromOffAddr:
		return 0xFF
	}

	return b.io[addr-ioMinAddr]
}

func (b *Bus) writeIO(addr uint16, data byte) {
	switch {
	case addr == joypadAddr:
		b.Joypad.Write(data)
	case addr == divAddr:
		// Any write resets the divider.
		b.divCounter = 0
	case addr == ifAddr:
		b.Interrupts.SetFlags(data)
	case addr == dmaAddr:
		b.dmaSource = data
		b.dmaTransfer(data)
	case addr >= lcdRegMinAddr && addr <= lcdRegMaxAddr:
		b.Ppu.WriteRegister(addr, data)
	case addr == bootromOffAddr:
		// One way: once the bootstrap unmaps itself it stays unmapped.
		if data != 0 {
			b.bootEnabled = false
		}
	default:
		b.io[addr-ioMinAddr] = data
	}
}

// dmaTransfer copies 160 bytes from source<<8 into OAM.
func (b *Bus) dmaTransfer(source byte) {
	base := uint16(source) << 8

	for i := uint16(0); i < dmaTransferLen; i++ {
		b.Ppu.writeOam(byte(i), b.Read(base+i))
	}
}

// Load a cartridge to the Game Boy.
func (b *Bus) InsertCartridge(cart *Cartridge) {
	b.Cart = cart
}

// LoadBootRom installs a 256-byte bootstrap ROM from the given file. The
// bootstrap overlays $0000-$00FF until software unmaps it through $FF50.
func (b *Bus) LoadBootRom(filepath string) error {
	data, err := ioutil.ReadFile(filepath)
	if err != nil {
		return errors.Wrapf(err, "unable to open boot ROM %v", filepath)
	}

	return b.LoadBootRomBytes(data)
}

// LoadBootRomBytes installs a bootstrap ROM from a byte slice.
func (b *Bus) LoadBootRomBytes(data []byte) error {
	if len(data) != bootRomSize {
		return errors.Errorf("boot ROM is %d bytes, want %d", len(data), bootRomSize)
	}

	b.bootRom = data
	return nil
}

// Reset the Game Boy. With a bootstrap ROM loaded execution starts there;
// otherwise the bus programs the I/O state the bootstrap would have left and
// starts at the cartridge entry point.
func (b *Bus) Reset() {
	withBoot := b.bootRom != nil
	b.bootEnabled = withBoot

	b.Cpu.Reset(withBoot)
	b.Ppu.Reset()
	b.divCounter = 0
	b.ClockCount = 0

	if !withBoot {
		b.Write(0xFF40, 0x91) // LCDC
		b.Write(0xFF47, 0xFC) // BGP
		b.Write(0xFF48, 0xFF) // OBP0
		b.Write(0xFF49, 0xFF) // OBP1
	}
}

// RunInstruction executes one CPU instruction, advances the PPU by the
// cycles it consumed, then dispatches at most one pending interrupt. The
// dispatch itself costs cycles too, which are likewise advanced. Returns the
// total cycles consumed.
//
// Checking for interrupts after the PPU has seen the instruction's cycles
// means a V-blank raised by those very cycles is serviced before the next
// instruction.
func (b *Bus) RunInstruction() (int, error) {
	cycles, err := b.Cpu.Step()
	if err != nil {
		return 0, err
	}
	b.advance(cycles)

	if vector, ok := b.Interrupts.Dispatch(b.Cpu.Ime); ok {
		b.Cpu.ServiceInterrupt(vector)
		b.advance(interruptServiceCycles)
		cycles += interruptServiceCycles
	} else if b.Cpu.Halted && b.Interrupts.Pending() {
		// IME is off: HALT ends but the interrupt is not serviced, so
		// execution falls through to the next instruction.
		b.Cpu.Halted = false
	}

	return cycles, nil
}

func (b *Bus) advance(cycles int) {
	b.Ppu.Advance(cycles)
	b.divCounter += uint16(cycles)
	b.ClockCount += uint64(cycles)
}

// RunFrame executes instructions until the PPU completes a frame. With the
// LCD disabled the PPU never finishes one, so a frame's worth of cycles is
// run instead.
func (b *Bus) RunFrame() error {
	start := b.ClockCount

	for !b.Ppu.frameComplete && b.ClockCount-start < frameCycles {
		if _, err := b.RunInstruction(); err != nil {
			return err
		}
	}

	b.Ppu.frameComplete = false
	return nil
}

// Run opens a display window and runs the emulation at the DMG frame rate
// until the window is closed. Must be called through pixelgl.Run.
func (b *Bus) Run() {
	title := "Game Boy"
	if b.Cart != nil && b.Cart.Title != "" {
		title = b.Cart.Title
	}

	// Create a PixelGL display for the PPU to render to.
	display := NewDisplay(title, b.debug)
	b.Disp = display

	intervalInMilli := (1 / fps) * 1000
	interval := time.Duration(intervalInMilli) * time.Millisecond
	fmt.Println("Frame refresh time:", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Use a time ticker to keep frames rendered steadily at a set FPS.
	for !display.Closed() {
		if err := b.RunFrame(); err != nil {
			log.Fatalf("emulation stopped: %v\n", err)
		}

		b.Joypad.updateJoypadInput(display.window)

		display.DrawFrame(b.Ppu.Framebuffer())
		if b.debug {
			b.drawDebugPanel(display)
		}
		display.UpdateScreen()

		<-ticker.C
	}
}

func (b *Bus) drawDebugPanel(display *Display) {
	display.clearDebug()

	cpu := b.Cpu
	display.DebugPrintf("AF: %04X\n", cpu.AF())
	display.DebugPrintf("BC: %04X\n", cpu.BC())
	display.DebugPrintf("DE: %04X\n", cpu.DE())
	display.DebugPrintf("HL: %04X\n", cpu.HL())
	display.DebugPrintf("SP: %04X\n", cpu.Sp)
	display.DebugPrintf("PC: %04X\n\n", cpu.Pc)

	display.DebugPrintf("IME: %v\n", cpu.Ime)
	display.DebugPrintf("IF: %02X IE: %02X\n\n", b.Interrupts.Flags(), b.Interrupts.Enable())

	display.DebugPrintf("LY: %3d\n", b.Ppu.scanline)
	display.DebugPrintf("Cycle Count: %d\n", cpu.CycleCount)
}
