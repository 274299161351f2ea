package gb

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/pixelgl"
	"github.com/faiface/pixel/text"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"
)

// Display renders the PPU's frame buffer to a PixelGL window, mapping the
// four DMG shades to the classic green-tinted LCD palette.
type Display struct {
	rgba *image.RGBA // Rectangle of RGBA points, used to manipulate pixels on the screen.

	window     *pixelgl.Window
	gameMatrix pixel.Matrix // Scale and position to render the running game.

	debugText *text.Text // CPU state panel, nil unless debug is enabled
}

const (
	// Main display settings
	dmgResW    float64 = ScreenWidth
	dmgResH    float64 = ScreenHeight
	scale      float64 = 4 // Scale at which to render the DMG display.
	screenW    float64 = dmgResW * scale
	screenH    float64 = dmgResH * scale
	screenPosX float64 = 600 // Where to render the display on the user's monitor.
	screenPosY float64 = 400

	// Debug panel settings
	debugResW float64 = 256
)

// The four DMG shades, lightest first.
var dmgPalette = [4]color.RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

func NewDisplay(title string, debug bool) *Display {
	rect := image.Rect(0, 0, int(dmgResW), int(dmgResH))
	rgba := image.NewRGBA(rect)

	width := screenW
	if debug {
		width += debugResW
	}

	config := pixelgl.WindowConfig{
		Title:    title,
		Bounds:   pixel.R(0, 0, width, screenH),
		Position: pixel.V(screenPosX, screenPosY),
		VSync:    true,
	}
	window, err := pixelgl.NewWindow(config)
	if err != nil {
		log.Fatal("Unable to create new PixelGl window...\n", err)
	}

	// Calculate matrix required to render the game to the display based on
	// the set scale.
	pic := pixel.PictureDataFromImage(rgba)

	matrix := pixel.IM.Moved(pic.Bounds().Center().Scaled(scale))
	matrix = matrix.Scaled(pic.Bounds().Center().Scaled(scale), scale)

	var debugText *text.Text
	if debug {
		atlas := text.NewAtlas(basicfont.Face7x13, text.ASCII)
		debugText = text.New(pixel.V(screenW+10, screenH-20), atlas)
	}

	return &Display{
		rgba:       rgba,
		window:     window,
		gameMatrix: matrix,
		debugText:  debugText,
	}
}

// DrawFrame copies a PPU frame (one shade per pixel, row-major) into the
// display's image buffer.
func (d *Display) DrawFrame(frame []byte) {
	for y := 0; y < int(dmgResH); y++ {
		for x := 0; x < int(dmgResW); x++ {
			shade := frame[y*int(dmgResW)+x] & 0x03
			d.rgba.SetRGBA(x, y, dmgPalette[shade])
		}
	}
}

// DebugPrintf writes a line to the debug panel. No-op unless the display was
// created with debug enabled.
func (d *Display) DebugPrintf(format string, a ...interface{}) {
	if d.debugText == nil {
		return
	}

	fmt.Fprintf(d.debugText, format, a...)
}

func (d *Display) clearDebug() {
	if d.debugText == nil {
		return
	}

	d.debugText.Clear()
}

// UpdateScreen pushes the image buffer (and the debug panel, if enabled) to
// the window.
func (d *Display) UpdateScreen() {
	d.window.Clear(colornames.Black)

	pic := pixel.PictureDataFromImage(d.rgba)

	sprite := pixel.NewSprite(pic, pic.Bounds())
	sprite.Draw(d.window, d.gameMatrix)

	if d.debugText != nil {
		d.debugText.Draw(d.window, pixel.IM)
	}

	d.window.Update()
}

// Closed reports whether the user has closed the window.
func (d *Display) Closed() bool {
	return d.window.Closed()
}
