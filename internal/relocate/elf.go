package relocate

import (
	"encoding/binary"
	"os"

	"golang.org/x/exp/mmap"
	"golang.org/x/xerrors"
)

// Minimal ELF64 structures, parsed by hand per spec.md §4.9 step 2
// ("no external tools on the hot path"). Only the fields needed to find
// PT_DYNAMIC and its DT_NEEDED/DT_RUNPATH/DT_SONAME string-table entries
// are modeled; this is not a general-purpose ELF library.
const (
	elfPhoffOffset  = 0x20 // e_phoff
	elfPhentsizeOff = 0x36 // e_phentsize
	elfPhnumOff     = 0x38 // e_phnum

	ptDynamic = 2

	dtNeeded  = 1
	dtStrtab  = 5
	dtSoname  = 14
	dtRpath   = 15
	dtRunpath = 29
	dtNull    = 0
)

type elfProgramHeader struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	VAddr  uint64
	PAddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

type elfDynEntry struct {
	Tag uint64
	Val uint64
}

// rewriteELF rewrites any DT_NEEDED/DT_SONAME/DT_RPATH/DT_RUNPATH string
// in path's dynamic section that contains a placeholder token. Because
// the ELF string table has no inherent alignment requirement between
// entries beyond NUL termination, a replacement that fits within the
// original string's byte length is written in place, padded with trailing
// NUL bytes; replacements are never allowed to grow past the original
// length (the string table's size does not change).
func rewriteELF(path, realPrefix, realCellar string) (changed bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	defer f.Close()

	ra, err := mmap.Open(path)
	if err != nil {
		return false, err
	}
	defer ra.Close()

	header := make([]byte, 64)
	if _, err := ra.ReadAt(header, 0); err != nil {
		return false, err
	}
	phoff := binary.LittleEndian.Uint64(header[elfPhoffOffset:])
	phentsize := binary.LittleEndian.Uint16(header[elfPhentsizeOff:])
	phnum := binary.LittleEndian.Uint16(header[elfPhnumOff:])

	var dynOffset, dynSize uint64
	for i := 0; i < int(phnum); i++ {
		buf := make([]byte, phentsize)
		if _, err := ra.ReadAt(buf, int64(phoff)+int64(i)*int64(phentsize)); err != nil {
			return false, err
		}
		ph := parseProgramHeader(buf)
		if ph.Type == ptDynamic {
			dynOffset, dynSize = ph.Offset, ph.Filesz
			break
		}
	}
	if dynSize == 0 {
		return false, nil // no PT_DYNAMIC: static binary, nothing to relocate
	}

	entries, err := readDynEntries(ra, dynOffset, dynSize)
	if err != nil {
		return false, err
	}

	var strtabAddr uint64
	for _, e := range entries {
		if e.Tag == dtStrtab {
			strtabAddr = e.Val
			break
		}
	}
	if strtabAddr == 0 {
		return false, xerrors.New("no DT_STRTAB found")
	}
	strtabOff, err := vaddrToOffset(ra, strtabAddr, phoff, phentsize, phnum)
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		switch e.Tag {
		case dtNeeded, dtSoname, dtRpath, dtRunpath:
			strOff := strtabOff + e.Val
			s, err := readCString(ra, strOff, 4096)
			if err != nil {
				continue
			}
			if !containsToken(s) {
				continue
			}
			rewritten := replaceToken(s, realPrefix, realCellar)
			if len(rewritten) > len(s) {
				return changed, xerrors.Errorf("rewritten string %q longer than original %q: in-place ELF rewrite requires the replacement to fit", rewritten, s)
			}
			padded := make([]byte, len(s)+1)
			copy(padded, rewritten)
			if _, err := f.WriteAt(padded, int64(strOff)); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

func parseProgramHeader(b []byte) elfProgramHeader {
	return elfProgramHeader{
		Type:   binary.LittleEndian.Uint32(b[0:]),
		Flags:  binary.LittleEndian.Uint32(b[4:]),
		Offset: binary.LittleEndian.Uint64(b[8:]),
		VAddr:  binary.LittleEndian.Uint64(b[16:]),
		PAddr:  binary.LittleEndian.Uint64(b[24:]),
		Filesz: binary.LittleEndian.Uint64(b[32:]),
		Memsz:  binary.LittleEndian.Uint64(b[40:]),
		Align:  binary.LittleEndian.Uint64(b[56:]),
	}
}

func readDynEntries(ra *mmap.ReaderAt, offset, size uint64) ([]elfDynEntry, error) {
	const entSize = 16
	n := size / entSize
	entries := make([]elfDynEntry, 0, n)
	buf := make([]byte, entSize)
	for i := uint64(0); i < n; i++ {
		if _, err := ra.ReadAt(buf, int64(offset+i*entSize)); err != nil {
			return nil, err
		}
		tag := binary.LittleEndian.Uint64(buf[0:])
		val := binary.LittleEndian.Uint64(buf[8:])
		if tag == dtNull {
			break
		}
		entries = append(entries, elfDynEntry{Tag: tag, Val: val})
	}
	return entries, nil
}

// vaddrToOffset maps a virtual address to a file offset by scanning
// PT_LOAD segments (the string table's VAddr from DT_STRTAB is a virtual
// address, not a file offset).
func vaddrToOffset(ra *mmap.ReaderAt, vaddr uint64, phoff uint64, phentsize, phnum uint16) (uint64, error) {
	const ptLoad = 1
	for i := 0; i < int(phnum); i++ {
		buf := make([]byte, phentsize)
		if _, err := ra.ReadAt(buf, int64(phoff)+int64(i)*int64(phentsize)); err != nil {
			return 0, err
		}
		ph := parseProgramHeader(buf)
		if ph.Type != ptLoad {
			continue
		}
		if vaddr >= ph.VAddr && vaddr < ph.VAddr+ph.Memsz {
			return ph.Offset + (vaddr - ph.VAddr), nil
		}
	}
	return 0, xerrors.Errorf("no PT_LOAD segment covers vaddr %#x", vaddr)
}

func readCString(ra *mmap.ReaderAt, offset uint64, maxLen int) (string, error) {
	buf := make([]byte, maxLen)
	n, err := ra.ReadAt(buf, int64(offset))
	if err != nil && n == 0 {
		return "", err
	}
	for i, b := range buf[:n] {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return "", xerrors.New("unterminated string in ELF string table")
}
