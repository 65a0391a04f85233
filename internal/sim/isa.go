package sim

import "encoding/binary"

// Instructions are 4 byte little-endian words: the opcode in the low byte and
// a 24 bit immediate above it. Addresses in jumps are offsets from the image
// base, addresses in loads and stores are offsets from the RAM base.
const (
	OpNop     = 0x00
	OpSyscall = 0x01 // syscall imm; r0 is the argument
	OpLoad    = 0x02 // r0 = [ram+imm] (8 bytes)
	OpStore   = 0x03 // [ram+imm] = r0
	OpAddi    = 0x04 // r0 += signed imm
	OpJmp     = 0x05
	OpJnz     = 0x06 // jump if r0 != 0
	OpHalt    = 0xff // exit(r0)

	insnSize = 4

	// SysExit is the syscall that ends the process with code r0.
	SysExit = 60
)

func encode(op byte, imm uint32) uint32 {
	return uint32(op) | (imm&0xffffff)<<8
}

func Nop() uint32              { return encode(OpNop, 0) }
func Syscall(nr uint32) uint32 { return encode(OpSyscall, nr) }
func Load(off uint32) uint32   { return encode(OpLoad, off) }
func Store(off uint32) uint32  { return encode(OpStore, off) }
func Addi(v int32) uint32      { return encode(OpAddi, uint32(v)) }
func Jmp(off uint32) uint32    { return encode(OpJmp, off) }
func Jnz(off uint32) uint32    { return encode(OpJnz, off) }
func Halt() uint32             { return encode(OpHalt, 0) }

// Program assembles instructions into an image.
func Program(insns ...uint32) []byte {
	b := make([]byte, 0, len(insns)*insnSize)
	for _, in := range insns {
		b = binary.LittleEndian.AppendUint32(b, in)
	}
	return b
}

type insn struct {
	op  byte
	imm uint32
}

func decode(w uint32) insn {
	return insn{op: byte(w), imm: w >> 8}
}

// simm sign-extends the 24 bit immediate.
func (i insn) simm() int64 {
	return int64(int32(i.imm<<8) >> 8)
}

// Countdown is the default image: it counts r0 down from 5, stores the
// result and exits with it.
var Countdown = Program(
	Addi(5),
	Addi(-1),
	Jnz(4),
	Store(0),
	Syscall(SysExit),
)
