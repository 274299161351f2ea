package gb

// Interrupt sources, in dispatch priority order. Lower value wins when more
// than one is pending.
type Interrupt byte

const (
	IntVBlank Interrupt = iota
	IntLCDStat
	IntTimer
	IntSerial
	IntJoypad

	numInterrupts
)

// Fixed service vectors, indexed by Interrupt.
var interruptVectors = [numInterrupts]uint16{
	0x0040, // V-blank
	0x0048, // LCD status
	0x0050, // Timer
	0x0058, // Serial
	0x0060, // Joypad
}

const interruptMask byte = 0x1F // only the low 5 bits of IF/IE exist

// InterruptController holds the interrupt flag (IF, $FF0F) and interrupt
// enable (IE, $FFFF) registers. Producers set flag bits through Request;
// the driver consumes them through Dispatch.
//
// Of the five sources, only V-blank ever self-triggers in this core. The
// other four are present at register level so software can read and write
// them, but nothing raises them.
type InterruptController struct {
	flags  byte // IF
	enable byte // IE
}

func NewInterruptController() *InterruptController {
	return &InterruptController{}
}

// Request sets the flag bit for the given interrupt kind, regardless of the
// enable register.
func (ic *InterruptController) Request(kind Interrupt) {
	ic.flags |= 1 << kind
}

// Dispatch returns the service vector of the highest-priority pending
// interrupt and clears its flag bit. An interrupt is pending when its bit is
// set in both IF and IE. Returns ok=false when nothing is pending or when
// the CPU's master enable (IME) is off.
func (ic *InterruptController) Dispatch(ime bool) (vector uint16, ok bool) {
	if !ime {
		return 0, false
	}

	pending := ic.flags & ic.enable & interruptMask
	if pending == 0 {
		return 0, false
	}

	// Lowest bit position wins.
	for kind := Interrupt(0); kind < numInterrupts; kind++ {
		bit := byte(1) << kind
		if pending&bit != 0 {
			ic.flags &^= bit
			return interruptVectors[kind], true
		}
	}

	return 0, false
}

// Pending reports whether any enabled interrupt is requested. Used by the
// driver to wake a halted CPU; ignores IME on purpose.
func (ic *InterruptController) Pending() bool {
	return ic.flags&ic.enable&interruptMask != 0
}

// Register accessors used by the memory bus.

// The unused high bits of IF read as set.
func (ic *InterruptController) Flags() byte { return ic.flags | ^interruptMask }

func (ic *InterruptController) SetFlags(data byte) { ic.flags = data & interruptMask }

func (ic *InterruptController) Enable() byte { return ic.enable }

func (ic *InterruptController) SetEnable(data byte) { ic.enable = data }
