package gb

import (
	"github.com/faiface/pixel/pixelgl"
)

// Joypad models the $FF00 register. The Game Boy multiplexes its eight
// buttons onto four input lines, selected by two active-low select bits:
// bit 4 selects the d-pad, bit 5 the action buttons. Input lines read 0
// when pressed.
type Joypad struct {
	selectBits  byte   // last written select bits (4 and 5)
	buttonState []bool // key press state: on/off
}

func NewJoypad() *Joypad {
	return &Joypad{
		selectBits:  0x30,
		buttonState: make([]bool, len(joypadKeys)),
	}
}

// Available Game Boy buttons and their keyboard binds
// Keyboard binds:
/*
	0: Right  ---> D
	1: Left   ---> A
	2: Up     ---> W
	3: Down   ---> S
	4: A      ---> J
	5: B      ---> K
	6: Select ---> Right Shift
	7: Start  ---> Enter
*/
const (
	keyRight int = iota
	keyLeft
	keyUp
	keyDown
	keyA
	keyB
	keySelect
	keyStart
)

var joypadKeys = map[int]pixelgl.Button{
	keyRight:  pixelgl.KeyD,
	keyLeft:   pixelgl.KeyA,
	keyUp:     pixelgl.KeyW,
	keyDown:   pixelgl.KeyS,
	keyA:      pixelgl.KeyJ,
	keyB:      pixelgl.KeyK,
	keySelect: pixelgl.KeyRightShift,
	keyStart:  pixelgl.KeyEnter,
}

// Read returns the $FF00 view for the currently selected button group.
// Unused bits 6-7 read set; with neither group selected all inputs read
// released.
func (j *Joypad) Read() byte {
	state := byte(0xC0) | j.selectBits | 0x0F

	if j.selectBits&0x10 == 0 { // d-pad selected
		if j.buttonState[keyRight] {
			state &^= 0x01
		}
		if j.buttonState[keyLeft] {
			state &^= 0x02
		}
		if j.buttonState[keyUp] {
			state &^= 0x04
		}
		if j.buttonState[keyDown] {
			state &^= 0x08
		}
	}

	if j.selectBits&0x20 == 0 { // action buttons selected
		if j.buttonState[keyA] {
			state &^= 0x01
		}
		if j.buttonState[keyB] {
			state &^= 0x02
		}
		if j.buttonState[keySelect] {
			state &^= 0x04
		}
		if j.buttonState[keyStart] {
			state &^= 0x08
		}
	}

	return state
}

// Write stores the group select bits. The input lines themselves are
// read-only.
func (j *Joypad) Write(data byte) {
	j.selectBits = data & 0x30
}

func (j *Joypad) updateJoypadInput(win *pixelgl.Window) {
	// Key down
	for idx, key := range joypadKeys {
		if win.JustPressed(key) {
			j.buttonState[idx] = true
		}
	}
	// Key up
	for idx, key := range joypadKeys {
		if win.JustReleased(key) {
			j.buttonState[idx] = false
		}
	}
}
