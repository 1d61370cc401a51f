package domain

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeGenerator_Shape(t *testing.T) {
	g := NewCodeGenerator(nil)
	for i := 0; i < 200; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.True(t, IsValidCode(code), "generated %q", code)
	}
}

func TestCodeGenerator_DeterministicSource(t *testing.T) {
	// 0..7 map straight onto the first eight alphabet characters
	src := bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})
	code, err := NewCodeGenerator(src).Generate()
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGH", code)
}

func TestCodeGenerator_SkipsBiasedBytes(t *testing.T) {
	raw := []byte{255, 254, 253, 252, 35, 36, 71, 0, 1, 2, 3, 4, 5, 6, 7, 8}
	code, err := NewCodeGenerator(bytes.NewReader(raw)).Generate()
	require.NoError(t, err)
	// 35 -> '9', 36 -> 'A', 71 -> '9', then A..E
	assert.Equal(t, "9A9ABCDE", code)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestCodeGenerator_ReaderError(t *testing.T) {
	_, err := NewCodeGenerator(failingReader{}).Generate()
	assert.Error(t, err)
}

func TestIsValidCode(t *testing.T) {
	assert.True(t, IsValidCode("AB12CD34"))
	assert.False(t, IsValidCode("ab12cd34"))
	assert.False(t, IsValidCode("AB12CD3"))
	assert.False(t, IsValidCode("AB12-D34"))
}
