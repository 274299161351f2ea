package gb

import "sort"

// Ppu is the Game Boy's picture processing unit: an 8KB tile-based VRAM,
// object attribute memory for 40 sprites, and a scanline state machine
// clocked in lockstep with the CPU.
//
// References:
// https://gbdev.io/pandocs/Rendering.html
// https://gbdev.io/pandocs/STAT.html
type Ppu struct {
	vram [vramSize]byte
	oam  objectAttributeMemory

	// LCD registers ($FF40-$FF4B, minus DMA which the bus owns).
	lcdc byte // $FF40 LCD control
	stat byte // $FF41 LCD status (interrupt-enable bits only; the rest is derived)
	scy  byte // $FF42 background scroll Y
	scx  byte // $FF43 background scroll X
	lyc  byte // $FF45 LY compare
	bgp  byte // $FF47 background palette
	obp0 byte // $FF48 object palette 0
	obp1 byte // $FF49 object palette 1
	wy   byte // $FF4A window Y position
	wx   byte // $FF4B window X position, plus 7

	cycle      int  // cycles into the current mode
	scanline   int  // current line (LY), 0-153
	mode       byte // current STAT mode
	windowLine int  // lines of window rendered this frame

	frameComplete bool // set on entry to V-blank, cleared by the frame driver

	// One shade (0-3, darkest last) per screen pixel.
	frame [ScreenWidth * ScreenHeight]byte

	// Raw background color indices for the line being rendered, before
	// palette mapping. Sprite priority is decided against these.
	bgLine [ScreenWidth]byte

	interrupts *InterruptController
}

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	vramSize = 0x2000

	// Mode durations in cycles. One scanline is 456 cycles; a frame is 154
	// scanlines, the last 10 spent in V-blank.
	oamScanCycles       = 80
	pixelTransferCycles = 172
	hblankCycles        = 204
	scanlineCycles      = oamScanCycles + pixelTransferCycles + hblankCycles

	visibleScanlines = ScreenHeight
	totalScanlines   = 154

	// STAT mode numbers.
	modeHBlank        = 0
	modeVBlank        = 1
	modeOAMScan       = 2
	modePixelTransfer = 3

	spritesPerLine = 10
)

// LCDC bits.
const (
	lcdcBGEnable byte = 1 << iota
	lcdcObjEnable
	lcdcObjSize // 0: 8x8, 1: 8x16
	lcdcBGTileMap
	lcdcTileData // 0: signed indices from $9000, 1: unsigned from $8000
	lcdcWindowEnable
	lcdcWindowTileMap
	lcdcEnable
)

func NewPpu() *Ppu {
	return &Ppu{
		oam:  newOAM(oamSpriteCount),
		mode: modeOAMScan,
	}
}

// ConnectInterrupts attaches the controller the PPU raises V-blank through.
func (p *Ppu) ConnectInterrupts(ic *InterruptController) {
	p.interrupts = ic
}

// Reset returns the PPU to the top-left of a fresh frame. Register values
// are left to the caller: the bootstrap ROM (or the bus standing in for it)
// programs them.
func (p *Ppu) Reset() {
	p.cycle = 0
	p.scanline = 0
	p.windowLine = 0
	p.mode = modeOAMScan
	p.frameComplete = false

	for i := range p.frame {
		p.frame[i] = 0
	}
}

// Advance runs the PPU for the given number of cycles, walking the
// OAM scan -> pixel transfer -> h-blank sequence per scanline. A scanline is
// rendered in one shot on entry to h-blank. Entering scanline 144 raises the
// V-blank interrupt and marks the frame complete.
//
// With the LCD switched off the PPU holds at the top of the frame and
// consumes no time.
func (p *Ppu) Advance(cycles int) {
	if p.lcdc&lcdcEnable == 0 {
		p.cycle = 0
		p.scanline = 0
		p.windowLine = 0
		p.mode = modeHBlank
		return
	}

	p.cycle += cycles

	for {
		switch p.mode {
		case modeOAMScan:
			if p.cycle < oamScanCycles {
				return
			}
			p.cycle -= oamScanCycles
			p.mode = modePixelTransfer

		case modePixelTransfer:
			if p.cycle < pixelTransferCycles {
				return
			}
			p.cycle -= pixelTransferCycles
			p.renderScanline()
			p.mode = modeHBlank

		case modeHBlank:
			if p.cycle < hblankCycles {
				return
			}
			p.cycle -= hblankCycles
			p.scanline++

			if p.scanline == visibleScanlines {
				p.mode = modeVBlank
				p.frameComplete = true
				if p.interrupts != nil {
					p.interrupts.Request(IntVBlank)
				}
			} else {
				p.mode = modeOAMScan
			}

		case modeVBlank:
			if p.cycle < scanlineCycles {
				return
			}
			p.cycle -= scanlineCycles
			p.scanline++

			if p.scanline == totalScanlines {
				p.scanline = 0
				p.windowLine = 0
				p.mode = modeOAMScan
			}
		}
	}
}

////////////////////////////////////////////////////////////////
// Memory and register access (used by the bus)

func (p *Ppu) readVram(addr uint16) byte {
	return p.vram[addr&(vramSize-1)]
}

func (p *Ppu) writeVram(addr uint16, data byte) {
	p.vram[addr&(vramSize-1)] = data
}

func (p *Ppu) readOam(addr byte) byte {
	return p.oam.read(addr)
}

func (p *Ppu) writeOam(addr byte, data byte) {
	p.oam.write(addr, data)
}

// ReadRegister reads an LCD register.
func (p *Ppu) ReadRegister(addr uint16) byte {
	switch addr {
	case 0xFF40:
		return p.lcdc
	case 0xFF41:
		// Bit 7 is unused and reads set; bit 2 is the LY==LYC coincidence
		// flag; bits 1-0 are the current mode.
		status := 0x80 | (p.stat & 0x78) | p.mode
		if byte(p.scanline) == p.lyc {
			status |= 0x04
		}
		return status
	case 0xFF42:
		return p.scy
	case 0xFF43:
		return p.scx
	case 0xFF44:
		return byte(p.scanline)
	case 0xFF45:
		return p.lyc
	case 0xFF47:
		return p.bgp
	case 0xFF48:
		return p.obp0
	case 0xFF49:
		return p.obp1
	case 0xFF4A:
		return p.wy
	case 0xFF4B:
		return p.wx
	}

	return 0xFF
}

// WriteRegister writes an LCD register. Writing LY resets the line counter.
func (p *Ppu) WriteRegister(addr uint16, data byte) {
	switch addr {
	case 0xFF40:
		p.lcdc = data
	case 0xFF41:
		// Only the interrupt-enable bits are writable.
		p.stat = data & 0x78
	case 0xFF42:
		p.scy = data
	case 0xFF43:
		p.scx = data
	case 0xFF44:
		p.scanline = 0
		p.cycle = 0
	case 0xFF45:
		p.lyc = data
	case 0xFF47:
		p.bgp = data
	case 0xFF48:
		p.obp0 = data
	case 0xFF49:
		p.obp1 = data
	case 0xFF4A:
		p.wy = data
	case 0xFF4B:
		p.wx = data
	}
}

////////////////////////////////////////////////////////////////
// Scanline rendering

// renderScanline draws background, window, then sprites for the current
// line into the frame buffer.
func (p *Ppu) renderScanline() {
	for x := range p.bgLine {
		p.bgLine[x] = 0
	}

	if p.lcdc&lcdcBGEnable != 0 {
		p.renderBackgroundLine()
		if p.lcdc&lcdcWindowEnable != 0 {
			p.renderWindowLine()
		}
	} else {
		// Background disabled: the line is shade 0.
		base := p.scanline * ScreenWidth
		for x := 0; x < ScreenWidth; x++ {
			p.frame[base+x] = 0
		}
	}

	if p.lcdc&lcdcObjEnable != 0 {
		p.renderSpriteLine()
	}
}

func (p *Ppu) renderBackgroundLine() {
	mapBase := uint16(0x1800) // $9800
	if p.lcdc&lcdcBGTileMap != 0 {
		mapBase = 0x1C00 // $9C00
	}

	y := byte(p.scanline) + p.scy // wraps around the 256-pixel map
	tileRow := uint16(y/8) * 32

	base := p.scanline * ScreenWidth
	for screenX := 0; screenX < ScreenWidth; screenX++ {
		x := byte(screenX) + p.scx

		tileIdx := p.vram[mapBase+tileRow+uint16(x/8)]
		lo, hi := p.tileRow(tileIdx, y%8)

		colorIdx := tilePixel(lo, hi, x%8)
		p.bgLine[screenX] = colorIdx
		p.frame[base+screenX] = paletteShade(p.bgp, colorIdx)
	}
}

func (p *Ppu) renderWindowLine() {
	// The window starts at screen position (WX-7, WY) and scrolls with
	// neither SCX nor SCY. Its own line counter only advances on lines
	// where it is actually drawn.
	if p.scanline < int(p.wy) || p.wx > 166 {
		return
	}

	mapBase := uint16(0x1800)
	if p.lcdc&lcdcWindowTileMap != 0 {
		mapBase = 0x1C00
	}

	y := byte(p.windowLine)
	tileRow := uint16(y/8) * 32

	startX := int(p.wx) - 7
	if startX < 0 {
		startX = 0
	}

	base := p.scanline * ScreenWidth
	for screenX := startX; screenX < ScreenWidth; screenX++ {
		x := byte(screenX - (int(p.wx) - 7))

		tileIdx := p.vram[mapBase+tileRow+uint16(x/8)]
		lo, hi := p.tileRow(tileIdx, y%8)

		colorIdx := tilePixel(lo, hi, x%8)
		p.bgLine[screenX] = colorIdx
		p.frame[base+screenX] = paletteShade(p.bgp, colorIdx)
	}

	p.windowLine++
}

func (p *Ppu) renderSpriteLine() {
	spriteHeight := 8
	if p.lcdc&lcdcObjSize != 0 {
		spriteHeight = 16
	}

	// Hardware takes the first 10 sprites in OAM order that intersect the
	// line, then orders them by X coordinate with OAM order breaking ties.
	type lineSprite struct {
		sprite *oamSprite
		oamIdx int
	}
	var sprites []lineSprite

	for i, s := range p.oam {
		sy := int(s.y) - 16
		if p.scanline < sy || p.scanline >= sy+spriteHeight {
			continue
		}

		sprites = append(sprites, lineSprite{s, i})
		if len(sprites) == spritesPerLine {
			break
		}
	}

	sort.SliceStable(sprites, func(i, j int) bool {
		return sprites[i].sprite.x < sprites[j].sprite.x
	})

	// Lowest X wins overlaps, so draw back to front.
	base := p.scanline * ScreenWidth
	for i := len(sprites) - 1; i >= 0; i-- {
		s := sprites[i].sprite

		row := p.scanline - (int(s.y) - 16)
		if s.isFlippedVertical() {
			row = spriteHeight - 1 - row
		}

		tile := s.tile
		if spriteHeight == 16 {
			// 8x16 sprites ignore the tile index's low bit.
			tile &= 0xFE
			if row >= 8 {
				tile++
				row -= 8
			}
		}

		// Sprite tiles always use unsigned indexing from $8000.
		tileAddr := uint16(tile)*16 + uint16(row)*2
		lo := p.vram[tileAddr]
		hi := p.vram[tileAddr+1]

		if s.isFlippedHorizontal() {
			lo = flipByte(lo)
			hi = flipByte(hi)
		}

		palette := p.obp0
		if s.attribute&0x10 != 0 {
			palette = p.obp1
		}

		for px := 0; px < 8; px++ {
			screenX := int(s.x) - 8 + px
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}

			colorIdx := tilePixel(lo, hi, byte(px))
			if colorIdx == 0 {
				continue // color 0 is transparent
			}
			if s.isBehindBackground() && p.bgLine[screenX] != 0 {
				continue
			}

			p.frame[base+screenX] = paletteShade(palette, colorIdx)
		}
	}
}

// tileRow reads one 8-pixel row of a background/window tile as its two
// bitplanes, honoring the LCDC tile data addressing mode.
func (p *Ppu) tileRow(tileIdx byte, row byte) (lo, hi byte) {
	var addr uint16
	if p.lcdc&lcdcTileData != 0 {
		addr = uint16(tileIdx) * 16 // unsigned from $8000
	} else {
		addr = uint16(0x1000 + int(int8(tileIdx))*16) // signed from $9000
	}
	addr += uint16(row) * 2

	return p.vram[addr], p.vram[addr+1]
}

// tilePixel extracts pixel x (0 = leftmost) of a tile row from its two
// bitplanes. The low plane holds bit 0 of each color index, the high plane
// bit 1; the leftmost pixel lives in bit 7.
func tilePixel(lo, hi byte, x byte) byte {
	bit := 7 - x
	return ((hi>>bit)&1)<<1 | (lo>>bit)&1
}

// paletteShade maps a 2-bit color index through a palette register.
func paletteShade(palette, colorIdx byte) byte {
	return (palette >> (colorIdx * 2)) & 0x03
}

// Framebuffer returns the current frame as one shade (0-3) per pixel, in
// row-major order.
func (p *Ppu) Framebuffer() []byte {
	return p.frame[:]
}
