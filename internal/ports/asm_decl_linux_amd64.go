//go:build linux && amd64 && hwports

package ports

// outb and inb are implemented in asm_linux_amd64.s: a single IN/OUT
// instruction apiece. They require the calling thread to already hold I/O
// privilege via Iopl(3) (see NewHardwareBus).
func outb(port uint16, value byte)
func inb(port uint16) byte
