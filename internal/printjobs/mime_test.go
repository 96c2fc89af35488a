package printjobs

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffReplaysWholeBody(t *testing.T) {
	long := pdfBody + strings.Repeat("x", sniffLen*2)

	contentType, mediaType, body, err := sniff(strings.NewReader(long))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "application/pdf", mediaType)

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, long, string(got))
}

func TestSniffStripsParameters(t *testing.T) {
	contentType, mediaType, _, err := sniff(strings.NewReader("plain words for the counter"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(contentType, "text/plain"))
	assert.Equal(t, "text/plain", mediaType)
	assert.True(t, isAllowedType(mediaType))
}

func TestSniffEmpty(t *testing.T) {
	_, _, _, err := sniff(strings.NewReader(""))
	assert.ErrorIs(t, err, errEmptyFile)
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"cv.pdf":              "cv.pdf",
		"  my photo.png ":     "my-photo.png",
		"../../etc/passwd":    "passwd",
		`C:\Users\ada\cv.pdf`: "cv.pdf",
		"":                    "",
		"..":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFileName(in), in)
	}
}

func TestAllowedTypesSorted(t *testing.T) {
	types := AllowedTypes()
	require.NotEmpty(t, types)
	assert.Contains(t, types, "application/pdf")
	assert.IsNonDecreasing(t, types)
}
