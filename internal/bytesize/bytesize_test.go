package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("PlainNumbers", func(t *testing.T) {
		size, err := Parse("1024")
		require.NoError(t, err)
		assert.Equal(t, ByteSize(1024), size)
	})

	t.Run("BinaryUnits", func(t *testing.T) {
		tests := []struct {
			input    string
			expected ByteSize
		}{
			{"1Ki", KiB},
			{"1KiB", KiB},
			{"256Mi", 256 * MiB},
			{"2Gi", 2 * GiB},
			{"1Ti", TiB},
		}
		for _, tt := range tests {
			size, err := Parse(tt.input)
			require.NoError(t, err, "input %q", tt.input)
			assert.Equal(t, tt.expected, size, "input %q", tt.input)
		}
	})

	t.Run("DecimalUnits", func(t *testing.T) {
		size, err := Parse("100MB")
		require.NoError(t, err)
		assert.Equal(t, 100*MB, size)

		size, err = Parse("2G")
		require.NoError(t, err)
		assert.Equal(t, 2*GB, size)
	})

	t.Run("FractionalValues", func(t *testing.T) {
		size, err := Parse("1.5Gi")
		require.NoError(t, err)
		assert.Equal(t, ByteSize(1.5*float64(GiB)), size)
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		a, err := Parse("512mi")
		require.NoError(t, err)
		b, err := Parse("512Mi")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("SurroundingWhitespace", func(t *testing.T) {
		size, err := Parse("  64Mi  ")
		require.NoError(t, err)
		assert.Equal(t, 64*MiB, size)
	})

	t.Run("RejectsEmptyString", func(t *testing.T) {
		_, err := Parse("")
		assert.Error(t, err)
	})

	t.Run("RejectsUnknownUnit", func(t *testing.T) {
		_, err := Parse("10XB")
		assert.Error(t, err)
	})

	t.Run("RejectsNonNumeric", func(t *testing.T) {
		_, err := Parse("abc")
		assert.Error(t, err)
	})
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("128Mi")))
	assert.Equal(t, 128*MiB, b)

	assert.Error(t, b.UnmarshalText([]byte("bogus")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "1.00KiB", KiB.String())
	assert.Equal(t, "256.00MiB", (256 * MiB).String())
	assert.Equal(t, "2.00GiB", (2 * GiB).String())
}
