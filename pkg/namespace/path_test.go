package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "a.txt", Join("", "a.txt"))
	assert.Equal(t, "docs/a.txt", Join("docs", "a.txt"))
	assert.Equal(t, "docs/sub/a.txt", Join("docs/sub", "a.txt"))
}

func TestParentAndBase(t *testing.T) {
	assert.Equal(t, "", Parent("a.txt"))
	assert.Equal(t, "docs", Parent("docs/a.txt"))
	assert.Equal(t, "docs/sub", Parent("docs/sub/a.txt"))

	assert.Equal(t, "a.txt", Base("a.txt"))
	assert.Equal(t, "a.txt", Base("docs/sub/a.txt"))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("report.pdf"))
	assert.NoError(t, ValidateName(".bashrc"))

	assert.ErrorIs(t, ValidateName(""), ErrInvalidName)
	assert.ErrorIs(t, ValidateName("a/b"), ErrInvalidName)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("docs", "docs"))
	assert.True(t, Contains("docs", "docs/sub"))
	assert.True(t, Contains("docs", "docs/sub/deep"))

	assert.False(t, Contains("docs", "docs2"))
	assert.False(t, Contains("docs/sub", "docs"))
}
