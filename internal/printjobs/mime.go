package printjobs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches the mimetype library's default read limit.
const sniffLen = 3072

type fileGroup string

const (
	fileGroupDocuments fileGroup = "documents"
	fileGroupImages    fileGroup = "images"
	fileGroupText      fileGroup = "text"
)

var fileGroupTypes = map[fileGroup][]string{
	fileGroupDocuments: {
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.oasis.opendocument.text",
		"text/rtf",
	},
	fileGroupImages: {"image/png", "image/jpeg", "image/webp", "image/gif", "image/tiff"},
	fileGroupText:   {"text/plain"},
}

var allowedTypes = buildAllowedTypes()

func buildAllowedTypes() map[string]struct{} {
	set := make(map[string]struct{})
	for _, types := range fileGroupTypes {
		for _, value := range types {
			set[value] = struct{}{}
		}
	}
	return set
}

// AllowedTypes lists the printable content types, sorted.
func AllowedTypes() []string {
	list := make([]string, 0, len(allowedTypes))
	for value := range allowedTypes {
		list = append(list, value)
	}
	sort.Strings(list)
	return list
}

var errEmptyFile = errors.New("file is empty")

// sniff detects the content type of r from its first bytes. The returned
// reader replays those bytes followed by the rest of r.
func sniff(r io.Reader) (contentType, mediaType string, body io.Reader, err error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, fmt.Errorf("reading file header: %w", err)
	}
	if n == 0 {
		return "", "", nil, errEmptyFile
	}
	header = header[:n]

	detected := mimetype.Detect(header)
	mediaType, _, err = mime.ParseMediaType(detected.String())
	if err != nil {
		return "", "", nil, fmt.Errorf("mime type invalid: %w", err)
	}
	return detected.String(), strings.ToLower(mediaType), io.MultiReader(bytes.NewReader(header), r), nil
}

func isAllowedType(mediaType string) bool {
	_, ok := allowedTypes[strings.ToLower(mediaType)]
	return ok
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
