package namespace

import (
	"fmt"
	"strings"
)

// SplitExtension splits name into base and extension at the last dot that is
// not the first character. A name starting with "." has no extension under
// this rule (".bashrc" is all base), matching how desktop file managers
// treat dotfiles.
func SplitExtension(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// MakeUnique returns a collision-free variant of name against takenNames by
// appending " (1)", " (2)", ... before the extension. Deterministic: the
// lowest free counter wins. Terminates because takenNames is finite.
//
// Callers gate this behind a confirmed conflict (FindConflicts); it is not
// meant to be called speculatively, and it does not check whether name
// itself is free.
func MakeUnique(name string, takenNames map[string]struct{}) string {
	base, ext := SplitExtension(name)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, taken := takenNames[candidate]; !taken {
			return candidate
		}
	}
}
