package relocate

import (
	"bytes"
	"encoding/binary"
	"os/exec"

	"golang.org/x/exp/mmap"
	"golang.org/x/xerrors"
)

// Mach-O load command constants needed to find dylib-id, load-dylib, and
// rpath strings. Fat/universal headers are rejected here in favor of
// per-architecture parsing of the contained thin Mach-O slices, since
// install_name_tool itself operates on the whole (possibly fat) file.
const (
	lcIDDylib    = 0x0d
	lcLoadDylib  = 0x0c
	lcLoadWeak   = 0x18
	lcRpath      = 0x8000001c
	loadCmdMask  = 0x7fffffff // strip the LC_REQ_DYLD bit
	machHeader64Size = 32
)

// machoOp is one rewrite operation to hand to install_name_tool.
type machoOp struct {
	flag string // "-id", "-change", "-rpath"
	old  string
	new  string
}

// machoRewriteOps scans path's Mach-O load commands for dylib-id,
// load-dylib, and rpath strings containing a placeholder token, and
// returns the minimal set of install_name_tool operations needed to
// rewrite them (spec.md §4.9 step 3-4: compute rewrites first, issue them
// as one batched invocation per binary).
func machoRewriteOps(path, realPrefix, realCellar string) ([]machoOp, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer ra.Close()

	header := make([]byte, 16)
	if _, err := ra.ReadAt(header, 0); err != nil {
		return nil, err
	}
	magic := le32(header)
	var slices []int64 // offsets of thin Mach-O headers within the file
	switch magic {
	case machoMagic64, machoMagic64BE:
		slices = []int64{0}
	case machoFatMagic, machoFatMagicBE:
		nArch := be32(header[4:8])
		off := int64(8)
		for i := uint32(0); i < nArch; i++ {
			fa := make([]byte, 20)
			if _, err := ra.ReadAt(fa, off); err != nil {
				return nil, err
			}
			slices = append(slices, int64(be32(fa[8:12])))
			off += 20
		}
	default:
		return nil, xerrors.New("not a Mach-O file")
	}

	var ops []machoOp
	for _, base := range slices {
		sliceOps, err := scanMachOSlice(ra, base, realPrefix, realCellar)
		if err != nil {
			return nil, err
		}
		ops = append(ops, sliceOps...)
	}
	return dedupOps(ops), nil
}

func scanMachOSlice(ra *mmap.ReaderAt, base int64, realPrefix, realCellar string) ([]machoOp, error) {
	hdr := make([]byte, machHeader64Size)
	if _, err := ra.ReadAt(hdr, base); err != nil {
		return nil, err
	}
	ncmds := binary.LittleEndian.Uint32(hdr[16:20])
	sizeofcmds := binary.LittleEndian.Uint32(hdr[20:24])

	buf := make([]byte, sizeofcmds)
	if _, err := ra.ReadAt(buf, base+machHeader64Size); err != nil {
		return nil, err
	}

	var ops []machoOp
	off := 0
	for i := uint32(0); i < ncmds && off+8 <= len(buf); i++ {
		cmd := binary.LittleEndian.Uint32(buf[off:]) & loadCmdMask
		cmdsize := binary.LittleEndian.Uint32(buf[off+4:])
		if cmdsize == 0 || off+int(cmdsize) > len(buf) {
			break
		}
		body := buf[off : off+int(cmdsize)]

		switch cmd {
		case lcIDDylib, lcLoadDylib, lcLoadWeak:
			// dylib_command: offset of the lc_str path is at body[8:12]
			// (the trailing `dylib` struct begins right after the common
			// load_command header).
			strOff := binary.LittleEndian.Uint32(body[8:12])
			if int(strOff) < len(body) {
				s := cString(body[strOff:])
				if containsToken(s) {
					flag := "-change"
					if cmd == lcIDDylib {
						flag = "-id"
					}
					ops = append(ops, machoOp{flag: flag, old: s, new: replaceToken(s, realPrefix, realCellar)})
				}
			}
		case lcRpath & loadCmdMask:
			strOff := binary.LittleEndian.Uint32(body[8:12])
			if int(strOff) < len(body) {
				s := cString(body[strOff:])
				if containsToken(s) {
					ops = append(ops, machoOp{flag: "-rpath", old: s, new: replaceToken(s, realPrefix, realCellar)})
				}
			}
		}
		off += int(cmdsize)
	}
	return ops, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func dedupOps(ops []machoOp) []machoOp {
	seen := make(map[machoOp]bool)
	out := ops[:0]
	for _, op := range ops {
		if seen[op] {
			continue
		}
		seen[op] = true
		out = append(out, op)
	}
	return out
}

// runInstallNameTool issues the minimum set of rewrites for one binary as
// a single batched install_name_tool invocation (-id/-change/-rpath
// bundled), matching spec.md §4.9 step 4.
func runInstallNameTool(path string, ops []machoOp) error {
	if len(ops) == 0 {
		return nil
	}
	var args []string
	for _, op := range ops {
		switch op.flag {
		case "-id":
			args = append(args, "-id", op.new)
		case "-change":
			args = append(args, "-change", op.old, op.new)
		case "-rpath":
			args = append(args, "-rpath", op.old, op.new)
		}
	}
	args = append(args, path)
	cmd := exec.Command("install_name_tool", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return xerrors.Errorf("install_name_tool %v: %v: %s", args, err, out)
	}
	return nil
}

// codesignBatch re-signs every modified binary in one codesign
// invocation, as spec.md §4.9 step 5 requires on macOS (the caller only
// invokes it when running on darwin).
func codesignBatch(paths []string) error {
	args := append([]string{"--force", "--sign", "-"}, paths...)
	cmd := exec.Command("codesign", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return xerrors.Errorf("codesign %v: %v: %s", paths, err, out)
	}
	return nil
}
