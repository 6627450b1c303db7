package relocate

import (
	"os"

	"golang.org/x/exp/mmap"
)

type binaryKind int

const (
	binaryOther binaryKind = iota
	binaryELF64
	binaryMachO
)

// ELF and Mach-O magic numbers, read straight from the first bytes of the
// file via mmap — no external tool involved in identifying the format.
const (
	elfMagic        = "\x7fELF"
	elfClass64      = 2
	machoMagic64    = 0xfeedfacf
	machoMagic64BE  = 0xcffaedfe
	machoFatMagic   = 0xcafebabe
	machoFatMagicBE = 0xbebafeca
)

// sniffBinary identifies whether path is a native-container binary worth
// relocating. Everything else (scripts, data files, non-64-bit objects)
// is skipped per spec.md §4.9 step 1.
func sniffBinary(path string) (binaryKind, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return binaryOther, err
	}
	if fi.Mode()&0111 == 0 && fi.Size() < 4 {
		return binaryOther, nil
	}

	r, err := mmap.Open(path)
	if err != nil {
		return binaryOther, err
	}
	defer r.Close()

	header := make([]byte, 16)
	n, _ := r.ReadAt(header, 0)
	header = header[:n]
	if len(header) < 4 {
		return binaryOther, nil
	}

	if string(header[:4]) == elfMagic {
		if len(header) >= 5 && header[4] == elfClass64 {
			return binaryELF64, nil
		}
		return binaryOther, nil // 32-bit ELF: skip
	}

	magic := be32(header)
	le := le32(header)
	switch {
	case magic == machoMagic64 || magic == machoMagic64BE ||
		le == machoMagic64 || le == machoMagic64BE:
		return binaryMachO, nil
	case magic == machoFatMagic || magic == machoFatMagicBE ||
		le == machoFatMagic || le == machoFatMagicBE:
		return binaryMachO, nil
	default:
		return binaryOther, nil
	}
}

func be32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func le32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}
