package processor

import (
	"fmt"
	"strings"
)

// TableFlags marks record classes that are deprecated: still extracted, then
// cleared before publish and write.
type TableFlags uint64

const (
	FlagTableItems TableFlags = 1 << iota
	FlagTableMetadatas
	FlagSignatures
)

var tableFlagNames = map[string]TableFlags{
	"TABLE_ITEMS":     FlagTableItems,
	"TABLE_METADATAS": FlagTableMetadatas,
	"SIGNATURES":      FlagSignatures,
}

// ParseTableFlags builds the bitset from the config's deprecated_tables list.
func ParseTableFlags(names []string) (TableFlags, error) {
	var flags TableFlags
	for _, name := range names {
		flag, ok := tableFlagNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown deprecated table %q", name)
		}
		flags |= flag
	}
	return flags, nil
}

func (f TableFlags) Contains(flag TableFlags) bool {
	return f&flag != 0
}
