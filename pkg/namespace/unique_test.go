package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitExtension(t *testing.T) {
	tests := []struct {
		name string
		base string
		ext  string
	}{
		{"report.pdf", "report", ".pdf"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".bashrc", ".bashrc", ""},
		{"noext.", "noext", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ext := SplitExtension(tt.name)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestMakeUnique(t *testing.T) {
	taken := func(names ...string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		return set
	}

	assert.Equal(t, "a (1).txt", MakeUnique("a.txt", taken("a.txt")))
	assert.Equal(t, "a (2).txt", MakeUnique("a.txt", taken("a.txt", "a (1).txt")))
	assert.Equal(t, "photos (1)", MakeUnique("photos", taken("photos")))
	assert.Equal(t, ".bashrc (1)", MakeUnique(".bashrc", taken(".bashrc")))
}

// MakeUnique must always land outside the taken set, whatever that set
// contains.
func TestMakeUniqueNeverCollides(t *testing.T) {
	set := make(map[string]struct{})
	set["a.txt"] = struct{}{}
	for i := 1; i <= 50; i++ {
		name := MakeUnique("a.txt", set)
		_, collides := set[name]
		assert.False(t, collides, "iteration %d returned taken name %q", i, name)
		set[name] = struct{}{}
	}
}
