// Package name provides the hierarchical Name identifier used throughout
// the proof orchestrator: an ordered tuple of parts alternating module and
// instance identifiers, with canonical filename, display, RTLIL, and
// db-key encodings.
package name

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Name is an ordered tuple of string parts alternating module and instance
// identifiers: (m0, i0, m1, i1, ..., leaf). Names are compared and hashed
// by their parts.
//
// The parts are held internally as their canonical JSON-array encoding
// rather than a []string, so Name stays a plain comparable value usable
// directly as a map key (the status graph and store index by Vertex and
// Task values that embed a Name) without a parallel Key()-string index.
type Name struct {
	encoded string
}

// New constructs a Name from its parts. The parts slice is copied.
func New(parts []string) Name {
	if parts == nil {
		parts = []string{}
	}
	data, err := json.Marshal(parts)
	if err != nil {
		// parts is a []string; json.Marshal of one only fails on invalid
		// UTF-8, which Go strings built from program text never contain.
		panic("name: marshaling parts: " + err.Error())
	}
	return Name{encoded: string(data)}
}

// Parts returns the underlying parts.
func (n Name) Parts() []string {
	if n.encoded == "" {
		return nil
	}
	var parts []string
	if err := json.Unmarshal([]byte(n.encoded), &parts); err != nil {
		panic("name: decoding parts: " + err.Error())
	}
	return parts
}

// Local builds a Name relative to n: it replaces n's leaf part with the
// given leaf, unless leaf is itself a fully qualified part list (used when
// resolving cross-references that already carry their own module path).
func (n Name) Local(leaf string) Name {
	parts := n.Parts()
	if len(parts) == 0 {
		return New([]string{leaf})
	}
	parts[len(parts)-1] = leaf
	return New(parts)
}

// LocalParts builds a Name from an explicit, already-resolved parts list,
// ignoring n entirely. Used when a JSON reference already carries a full
// module path rather than a bare leaf name.
func LocalParts(parts []string) Name {
	return New(parts)
}

var filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_.]`)
var leadingDot = regexp.MustCompile(`^[.]`)

// Filename returns the filename-safe form: parts joined by '.', with
// characters outside [A-Za-z0-9_.] replaced by '_', a leading '.' replaced
// by '_', and the empty string mapped to "unknown".
func (n Name) Filename() string {
	joined := strings.Join(n.Parts(), ".")
	joined = filenameSanitizer.ReplaceAllString(joined, "_")
	joined = leadingDot.ReplaceAllString(joined, "_")
	if joined == "" {
		return "unknown"
	}
	return joined
}

var bareIdentifier = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// InstanceParts returns the instance parts: parts at odd indices (1-based
// every second element), i.e. parts[1], parts[3], ...
func (n Name) InstanceParts() []string {
	parts := n.Parts()
	var out []string
	for i := 1; i < len(parts); i += 2 {
		out = append(out, parts[i])
	}
	return out
}

// ModuleParts returns the module parts: parts at even indices.
func (n Name) ModuleParts() []string {
	parts := n.Parts()
	var out []string
	for i := 0; i < len(parts); i += 2 {
		out = append(out, parts[i])
	}
	return out
}

// Display returns the display form: instance parts joined by '.', each
// part bare if it matches [A-Za-z0-9_]*, else emitted as `\part ` (with a
// significant trailing space).
func (n Name) Display() string {
	var sb strings.Builder
	for i, part := range n.InstanceParts() {
		if i > 0 {
			sb.WriteString(".")
		}
		if bareIdentifier.MatchString(part) {
			sb.WriteString(part)
		} else {
			sb.WriteString(`\`)
			sb.WriteString(part)
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

// String implements fmt.Stringer using the display form.
func (n Name) String() string {
	return n.Display()
}

// RTLIL returns the RTLIL form: parts[0] . parts[1] . ... . parts[-3] / parts[-1],
// i.e. the module path (all parts except the last two) joined by '.',
// followed by '/' and the leaf name. Names with fewer than 2 parts return
// just the leaf, with no module path.
func (n Name) RTLIL() string {
	parts := n.Parts()
	if len(parts) == 0 {
		return ""
	}
	leaf := parts[len(parts)-1]
	if len(parts) <= 2 {
		return "/" + leaf
	}
	modulePath := parts[:len(parts)-2]
	return strings.Join(modulePath, ".") + "/" + leaf
}

// DBKey returns the canonical JSON encoding of the parts array with no
// whitespace, used as the primary key in the persistent status store.
func (n Name) DBKey() string {
	if n.encoded == "" {
		return "[]"
	}
	return n.encoded
}

// FromDBKey parses the canonical JSON-array db-key back into a Name.
func FromDBKey(key string) (Name, error) {
	var parts []string
	if err := json.Unmarshal([]byte(key), &parts); err != nil {
		return Name{}, errors.New("invalid name db key: " + err.Error())
	}
	return New(parts), nil
}

// Equal reports whether n and other have identical parts.
func (n Name) Equal(other Name) bool {
	return n.DBKey() == other.DBKey()
}

// Key returns a string suitable for use as a map key, equal iff the Names
// are Equal. It is the same encoding as DBKey, exposed under a shorter name
// for in-memory indexing.
func (n Name) Key() string {
	return n.DBKey()
}
