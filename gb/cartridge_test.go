package gb

import (
	"testing"
)

func TestCartridgeLoad(t *testing.T) {
	rom := make([]byte, cartRomSize)
	copy(rom[cartTitleOffset:], "ZELDA")
	rom[cartTypeOffset] = cartTypeRomOnly
	rom[0x0100] = 0x42

	cart, err := NewCartridgeFromBytes(rom)
	if err != nil {
		t.Fatal(err)
	}

	if cart.Title != "ZELDA" {
		t.Errorf("got title %q, want %q\n", cart.Title, "ZELDA")
	}
	if got := cart.read(0x0100); got != 0x42 {
		t.Errorf("got %#02x, want 0x42\n", got)
	}
}

func TestCartridgeRejectsWrongSize(t *testing.T) {
	sizes := []int{0, 0x100, cartRomSize - 1, cartRomSize * 2}

	for _, size := range sizes {
		if _, err := NewCartridgeFromBytes(make([]byte, size)); err == nil {
			t.Errorf("%d-byte image should be rejected", size)
		}
	}
}

func TestCartridgeRejectsBankedTypes(t *testing.T) {
	rom := make([]byte, cartRomSize)
	rom[cartTypeOffset] = 0x01 // MBC1

	if _, err := NewCartridgeFromBytes(rom); err == nil {
		t.Error("MBC cartridge types should be rejected")
	}
}

func TestCartridgeMissingFile(t *testing.T) {
	if _, err := NewCartridge("./does-not-exist.gb"); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestCartridgeTitlePadding(t *testing.T) {
	rom := make([]byte, cartRomSize)
	rom[cartTypeOffset] = cartTypeRomOnly
	copy(rom[cartTitleOffset:], "AB\x00CD") // stops at the first NUL

	cart, err := NewCartridgeFromBytes(rom)
	if err != nil {
		t.Fatal(err)
	}

	if cart.Title != "AB" {
		t.Errorf("got title %q, want %q\n", cart.Title, "AB")
	}
}
