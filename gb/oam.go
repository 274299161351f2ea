package gb

const oamSpriteCount = 40

type objectAttributeMemory []*oamSprite

// newOAM returns object attribute memory of the given size, with each entry
// allocated in memory.
func newOAM(size int) objectAttributeMemory {
	oam := make(objectAttributeMemory, size)
	for i := range oam {
		oam[i] = new(oamSprite)
	}
	return oam
}

// oamSprite represents one entry, or sprite, in the Object Attribute Memory.
// Y and X are offset on hardware: Y=16/X=8 puts the sprite at the top left
// corner of the screen.
type oamSprite struct {
	y         byte // Y position of the sprite, plus 16
	x         byte // X position of the sprite, plus 8
	tile      byte // tile data index
	attribute byte // flag specifying rendering attributes
}

func (oam objectAttributeMemory) read(addr byte) byte {
	spriteIdx := int(addr) / 4
	propIdx := int(addr) % 4

	sprite := oam[spriteIdx]

	var data byte
	switch propIdx {
	case 0:
		data = sprite.y
	case 1:
		data = sprite.x
	case 2:
		data = sprite.tile
	case 3:
		data = sprite.attribute
	}

	return data
}

func (oam objectAttributeMemory) write(addr byte, data byte) {
	spriteIdx := int(addr) / 4
	propIdx := int(addr) % 4

	sprite := oam[spriteIdx]

	switch propIdx {
	case 0:
		sprite.y = data
	case 1:
		sprite.x = data
	case 2:
		sprite.tile = data
	case 3:
		sprite.attribute = data
	}
}

// Sprite attribute flags.

// isBehindBackground returns true if the sprite renders behind background
// colors 1-3.
func (s oamSprite) isBehindBackground() bool {
	return (s.attribute & 0x80) > 0
}

// isFlippedVertical returns true if the oamSprite's vertical flip flag is set.
func (s oamSprite) isFlippedVertical() bool {
	return (s.attribute & 0x40) > 0
}

// isFlippedHorizontal returns true if the oamSprite's horizontal flip flag is set.
func (s oamSprite) isFlippedHorizontal() bool {
	return (s.attribute & 0x20) > 0
}
