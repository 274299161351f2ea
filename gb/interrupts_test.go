package gb

import (
	"testing"
)

func TestInterruptDispatchPriority(t *testing.T) {
	ic := NewInterruptController()
	ic.SetEnable(0x1F)

	ic.Request(IntTimer)
	ic.Request(IntVBlank)
	ic.Request(IntJoypad)

	// V-blank outranks the others.
	vector, ok := ic.Dispatch(true)
	if !ok {
		t.Fatal("dispatch should succeed")
	}
	if vector != 0x0040 {
		t.Errorf("got vector %#04x, want 0x0040\n", vector)
	}

	// Only the serviced bit is cleared.
	if ic.Flags()&0x01 != 0 {
		t.Error("V-blank flag should be cleared")
	}
	if ic.Flags()&0x04 == 0 || ic.Flags()&0x10 == 0 {
		t.Error("unserviced flags should remain set")
	}

	// Next in line is the timer.
	vector, ok = ic.Dispatch(true)
	if !ok || vector != 0x0050 {
		t.Errorf("got vector %#04x ok=%v, want 0x0050\n", vector, ok)
	}

	vector, ok = ic.Dispatch(true)
	if !ok || vector != 0x0060 {
		t.Errorf("got vector %#04x ok=%v, want 0x0060\n", vector, ok)
	}

	if _, ok := ic.Dispatch(true); ok {
		t.Error("nothing left to dispatch")
	}
}

func TestInterruptDispatchRequiresIME(t *testing.T) {
	ic := NewInterruptController()
	ic.SetEnable(0x1F)
	ic.Request(IntVBlank)

	if _, ok := ic.Dispatch(false); ok {
		t.Error("dispatch must fail with IME off")
	}
	if ic.Flags()&0x01 == 0 {
		t.Error("failed dispatch must not clear the flag")
	}
}

func TestInterruptDispatchRequiresEnable(t *testing.T) {
	ic := NewInterruptController()
	ic.Request(IntVBlank)

	if _, ok := ic.Dispatch(true); ok {
		t.Error("dispatch must fail with the source disabled")
	}

	// Enabling afterwards lets the stored request through.
	ic.SetEnable(0x01)
	vector, ok := ic.Dispatch(true)
	if !ok || vector != 0x0040 {
		t.Errorf("got vector %#04x ok=%v, want 0x0040\n", vector, ok)
	}
}

func TestInterruptPendingIgnoresIME(t *testing.T) {
	ic := NewInterruptController()
	ic.SetEnable(0x04)
	ic.Request(IntTimer)

	if !ic.Pending() {
		t.Error("Pending should report enabled requests regardless of IME")
	}
}

func TestInterruptFlagRegisterBits(t *testing.T) {
	ic := NewInterruptController()

	// The unused high bits of IF read set.
	if got := ic.Flags(); got != 0xE0 {
		t.Errorf("got IF=%#02x, want 0xE0\n", got)
	}

	// Writes only land in the low five bits.
	ic.SetFlags(0xFF)
	if got := ic.Flags(); got != 0xFF {
		t.Errorf("got IF=%#02x, want 0xFF\n", got)
	}
	ic.SetFlags(0x00)
	if got := ic.Flags(); got != 0xE0 {
		t.Errorf("got IF=%#02x after clear, want 0xE0\n", got)
	}
}
