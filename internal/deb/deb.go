// Package deb holds the APT-specific parsing used by the metadata client
// (RFC-822 Packages stanzas, Depends clauses). Locating data.tar* and
// control.tar* members inside a .deb's ar container is done by
// internal/extract, not here.
package deb

import (
	"bufio"
	"strings"
)

// Stanza is one RFC-822 paragraph from an APT Packages index.
type Stanza struct {
	Package     string
	Version     string
	Depends     string
	Filename    string
	SHA256      string
	Size        string
	Description string
}

// ParseIndex splits an APT Packages index into stanzas, separated by
// blank lines, folding continuation lines (leading whitespace) into the
// preceding field per RFC-822.
func ParseIndex(b []byte) ([]Stanza, error) {
	var stanzas []Stanza
	cur := Stanza{}
	haveFields := false
	var lastField *string

	flush := func() {
		if haveFields {
			stanzas = append(stanzas, cur)
		}
		cur = Stanza{}
		haveFields = false
		lastField = nil
	}

	sc := bufio.NewScanner(b2r(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && lastField != nil {
			*lastField += "\n" + strings.TrimSpace(line)
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		haveFields = true
		switch key {
		case "Package":
			cur.Package = val
			lastField = &cur.Package
		case "Version":
			cur.Version = val
			lastField = &cur.Version
		case "Depends":
			cur.Depends = val
			lastField = &cur.Depends
		case "Filename":
			cur.Filename = val
			lastField = &cur.Filename
		case "SHA256":
			cur.SHA256 = val
			lastField = &cur.SHA256
		case "Size":
			cur.Size = val
			lastField = &cur.Size
		case "Description":
			cur.Description = val
			lastField = &cur.Description
		default:
			lastField = nil
		}
	}
	flush()
	return stanzas, sc.Err()
}

func b2r(b []byte) *strings.Reader { return strings.NewReader(string(b)) }

// ParseDepends parses a Depends field into an ordered sequence of package
// names: comma-separated clauses, each a '|'-separated alternatives list
// from which the first is chosen, with version constraints ("(>= 1.2)")
// and arch qualifiers ("[amd64]") stripped.
func ParseDepends(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var names []string
	for _, clause := range strings.Split(field, ",") {
		alts := strings.Split(clause, "|")
		if len(alts) == 0 {
			continue
		}
		name := stripQualifiers(alts[0])
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func stripQualifiers(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
