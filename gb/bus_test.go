package gb

import (
	"testing"
)

// makeTestRom builds a minimal valid ROM ONLY image: entry point at $0100
// jumping to a program at $0150.
func makeTestRom(program []byte) []byte {
	rom := make([]byte, cartRomSize)

	copy(rom[cartTitleOffset:], "TEST")
	rom[cartTypeOffset] = cartTypeRomOnly

	// Entry point: NOP ; JP $0150
	rom[0x0100] = 0x00
	rom[0x0101] = 0xC3
	rom[0x0102] = 0x50
	rom[0x0103] = 0x01

	copy(rom[0x0150:], program)

	return rom
}

func newBusWithRom(t *testing.T, program []byte) *Bus {
	t.Helper()

	cart, err := NewCartridgeFromBytes(makeTestRom(program))
	if err != nil {
		t.Fatal(err)
	}

	gb := NewBus(false, false)
	gb.InsertCartridge(cart)
	return gb
}

////////////////////////////////////////////////////////////////
// Memory map

func TestBusRomIsReadOnly(t *testing.T) {
	gb := newBusWithRom(t, nil)

	before := gb.Read(0x0100)
	gb.Write(0x0100, ^before)

	if got := gb.Read(0x0100); got != before {
		t.Errorf("got %#02x, want %#02x (ROM writes must be ignored)\n", got, before)
	}
}

func TestBusWorkRam(t *testing.T) {
	gb := newTestBus()

	gb.Write(0xC000, 0x11)
	gb.Write(0xDFFF, 0x22)

	if got := gb.Read(0xC000); got != 0x11 {
		t.Errorf("got %#02x, want 0x11\n", got)
	}
	if got := gb.Read(0xDFFF); got != 0x22 {
		t.Errorf("got %#02x, want 0x22\n", got)
	}
}

func TestBusEchoRamMirrorsWorkRam(t *testing.T) {
	gb := newTestBus()

	gb.Write(0xC123, 0xAB)
	if got := gb.Read(0xE123); got != 0xAB {
		t.Errorf("got %#02x reading echo, want 0xAB\n", got)
	}

	gb.Write(0xF000, 0xCD)
	if got := gb.Read(0xD000); got != 0xCD {
		t.Errorf("got %#02x reading WRAM, want 0xCD\n", got)
	}
}

func TestBusVramAndOam(t *testing.T) {
	gb := newTestBus()

	gb.Write(0x8000, 0x3C)
	if got := gb.Read(0x8000); got != 0x3C {
		t.Errorf("got %#02x from VRAM, want 0x3C\n", got)
	}

	gb.Write(0xFE00, 0x42)
	if got := gb.Read(0xFE00); got != 0x42 {
		t.Errorf("got %#02x from OAM, want 0x42\n", got)
	}
}

func TestBusUnusableRegion(t *testing.T) {
	gb := newTestBus()

	gb.Write(0xFEA0, 0x55)
	if got := gb.Read(0xFEA0); got != 0xFF {
		t.Errorf("got %#02x, want 0xFF (open bus)\n", got)
	}
}

func TestBusExternalRamAbsent(t *testing.T) {
	gb := newTestBus()

	gb.Write(0xA000, 0x55)
	if got := gb.Read(0xA000); got != 0xFF {
		t.Errorf("got %#02x, want 0xFF (no external RAM)\n", got)
	}
}

func TestBusInterruptRegisters(t *testing.T) {
	gb := newTestBus()

	gb.Write(0xFFFF, 0x15)
	if got := gb.Read(0xFFFF); got != 0x15 {
		t.Errorf("got IE=%#02x, want 0x15\n", got)
	}

	gb.Write(0xFF0F, 0x03)
	if got := gb.Read(0xFF0F); got != 0xE3 {
		t.Errorf("got IF=%#02x, want 0xE3\n", got)
	}
}

func TestBusDividerResetsOnWrite(t *testing.T) {
	gb := newTestBus()

	// Enough cycles to tick DIV (one tick per 256 cycles).
	gb.advance(1024)
	if got := gb.Read(0xFF04); got != 4 {
		t.Fatalf("got DIV=%d, want 4", got)
	}

	gb.Write(0xFF04, 0x99) // value is ignored
	if got := gb.Read(0xFF04); got != 0 {
		t.Errorf("got DIV=%d after write, want 0\n", got)
	}
}

func TestBusDmaTransfer(t *testing.T) {
	gb := newTestBus()

	for i := uint16(0); i < dmaTransferLen; i++ {
		gb.Write(0xC100+i, byte(i))
	}

	gb.Write(0xFF46, 0xC1)

	for i := uint16(0); i < dmaTransferLen; i++ {
		if got := gb.Read(0xFE00 + i); got != byte(i) {
			t.Fatalf("OAM byte %d: got %#02x, want %#02x", i, got, byte(i))
		}
	}

	if got := gb.Read(0xFF46); got != 0xC1 {
		t.Errorf("got DMA register %#02x, want 0xC1\n", got)
	}
}

////////////////////////////////////////////////////////////////
// Bootstrap ROM

func TestBusBootRomOverlay(t *testing.T) {
	gb := newBusWithRom(t, nil)

	boot := make([]byte, bootRomSize)
	for i := range boot {
		boot[i] = 0xAA
	}
	if err := gb.LoadBootRomBytes(boot); err != nil {
		t.Fatal(err)
	}

	gb.Reset()

	if gb.Cpu.Pc != 0x0000 {
		t.Errorf("got PC=%#04x, want 0x0000 with boot ROM\n", gb.Cpu.Pc)
	}
	if got := gb.Read(0x0000); got != 0xAA {
		t.Errorf("got %#02x, want boot byte 0xAA\n", got)
	}
	// Past the overlay the cartridge shows through.
	if got := gb.Read(0x0101); got != 0xC3 {
		t.Errorf("got %#02x at $0101, want cartridge byte 0xC3\n", got)
	}

	// Unmapping through $FF50 is one-way.
	gb.Write(0xFF50, 0x01)
	if got := gb.Read(0x0000); got == 0xAA {
		t.Error("boot ROM should be unmapped after writing $FF50")
	}

	gb.Write(0xFF50, 0x00)
	if got := gb.Read(0x0000); got == 0xAA {
		t.Error("boot ROM must not come back")
	}
}

func TestBusBootRomSizeRejected(t *testing.T) {
	gb := newTestBus()

	if err := gb.LoadBootRomBytes(make([]byte, 0x200)); err == nil {
		t.Error("oversized boot ROM should be rejected")
	}
}

func TestBusResetWithoutBootProgramsIO(t *testing.T) {
	gb := newBusWithRom(t, nil)
	gb.Reset()

	if got := gb.Read(0xFF40); got != 0x91 {
		t.Errorf("got LCDC=%#02x, want 0x91\n", got)
	}
	if got := gb.Read(0xFF47); got != 0xFC {
		t.Errorf("got BGP=%#02x, want 0xFC\n", got)
	}
}

////////////////////////////////////////////////////////////////
// Frame driving

func TestBusRunFrameRendersProgramOutput(t *testing.T) {
	// Fill tile 1 with solid color 3, point map entry (0,0) at it, then
	// spin. BGP $FC maps color 3 to shade 3.
	program := []byte{
		0x3E, 0xFF, // LD A,$FF
		0x21, 0x10, 0x80, // LD HL,$8010
		0x06, 0x10, // LD B,$10
		0x22,       // LD (HL+),A     <- loop
		0x05,       // DEC B
		0x20, 0xFC, // JR NZ,loop
		0x3E, 0x01, // LD A,$01
		0xEA, 0x00, 0x98, // LD ($9800),A
		0x18, 0xFE, // JR -2
	}

	gb := newBusWithRom(t, program)
	gb.Reset()

	// The first frame may start rendering before the program finishes
	// writing VRAM; the second is fully set up.
	for i := 0; i < 2; i++ {
		if err := gb.RunFrame(); err != nil {
			t.Fatal(err)
		}
	}

	frame := gb.Ppu.Framebuffer()
	for x := 0; x < 8; x++ {
		if frame[x] != 3 {
			t.Fatalf("pixel %d: got shade %d, want 3", x, frame[x])
		}
	}
	if frame[8] != 0 {
		t.Errorf("pixel 8: got shade %d, want 0\n", frame[8])
	}

	// Entering V-blank raised the interrupt flag.
	if gb.Read(0xFF0F)&0x01 == 0 {
		t.Error("V-blank should be requested")
	}
}

func TestBusRunFrameCyclesAddUp(t *testing.T) {
	// Consecutive frame completions are exactly 154 scanlines of 456 cycles
	// apart. The boundary lands mid-instruction, so the measured span may be
	// off by up to one instruction either way.
	program := []byte{0x18, 0xFE} // JR -2

	gb := newBusWithRom(t, program)
	gb.Reset()

	// Align to the first frame boundary before measuring.
	if err := gb.RunFrame(); err != nil {
		t.Fatal(err)
	}

	start := gb.ClockCount
	if err := gb.RunFrame(); err != nil {
		t.Fatal(err)
	}

	elapsed := gb.ClockCount - start
	if elapsed < frameCycles-36 || elapsed > frameCycles+36 {
		t.Errorf("got %d cycles, want ~%d\n", elapsed, frameCycles)
	}
}

func TestBusRunFrameStopsOnDecodeError(t *testing.T) {
	program := []byte{0xD3} // undefined

	gb := newBusWithRom(t, program)
	gb.Reset()

	if err := gb.RunFrame(); err == nil {
		t.Error("RunFrame should surface decode errors")
	}
}
