package gb

import (
	"io/ioutil"

	"github.com/pkg/errors"
)

const (
	cartRomSize = 32 * 1024 // ROM ONLY carts are a fixed 32KB
	bootRomSize = 0x100

	cartTypeOffset  = 0x0147
	cartTitleOffset = 0x0134
	cartTitleLen    = 16

	cartTypeRomOnly = 0x00
)

// Cartridge is a fixed, unbanked 32KB ROM image mapped read-only at $0000.
// Bank-switching controllers (MBCs) are not supported; images that declare
// one are rejected at load time rather than run incorrectly.
type Cartridge struct {
	Rom   []byte
	Title string
}

// NewCartridge loads a cartridge image from the given file path.
func NewCartridge(filepath string) (*Cartridge, error) {
	data, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open ROM %v", filepath)
	}

	cart, err := NewCartridgeFromBytes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "bad ROM %v", filepath)
	}

	return cart, nil
}

// NewCartridgeFromBytes validates a raw cartridge image.
func NewCartridgeFromBytes(data []byte) (*Cartridge, error) {
	if len(data) != cartRomSize {
		return nil, errors.Errorf("cartridge image is %d bytes, want %d", len(data), cartRomSize)
	}

	if ct := data[cartTypeOffset]; ct != cartTypeRomOnly {
		return nil, errors.Errorf("unsupported cartridge type %#02x, only ROM ONLY (0x00) is supported", ct)
	}

	return &Cartridge{
		Rom:   data,
		Title: cartTitle(data),
	}, nil
}

// Read from the cartridge ROM.
func (c *Cartridge) read(addr uint16) byte {
	return c.Rom[addr]
}

// The title sits at $0134, zero padded.
func cartTitle(data []byte) string {
	raw := data[cartTitleOffset : cartTitleOffset+cartTitleLen]

	end := 0
	for end < len(raw) && raw[end] != 0 {
		end++
	}

	return string(raw[:end])
}
