package constants

import "strings"

// ContentType is the declared media type of an uploaded document.
type ContentType string

const (
	ContentTypePDF  ContentType = "application/pdf"
	ContentTypePNG  ContentType = "image/png"
	ContentTypeJPEG ContentType = "image/jpeg"
)

// Format groups content types by the extractor that handles them.
type Format string

const (
	FormatPDF   Format = "PDF"
	FormatImage Format = "IMAGE"
)

// MaxUploadBytes is the largest accepted upload (10 MiB).
const MaxUploadBytes int64 = 10 << 20

// contentTypes maps every accepted media type, aliases included, to its canonical form.
var contentTypes = map[string]ContentType{
	"application/pdf": ContentTypePDF,
	"image/png":       ContentTypePNG,
	"image/jpeg":      ContentTypeJPEG,
	"image/jpg":       ContentTypeJPEG,
}

// extensions maps canonical content types to the file extension used for stored uploads.
var extensions = map[ContentType]string{
	ContentTypePDF:  ".pdf",
	ContentTypePNG:  ".png",
	ContentTypeJPEG: ".jpg",
}

var byExtension = map[string]ContentType{
	"pdf":  ContentTypePDF,
	"png":  ContentTypePNG,
	"jpg":  ContentTypeJPEG,
	"jpeg": ContentTypeJPEG,
}

// ParseContentType canonicalizes a declared media type. Parameters such as
// "; charset=binary" are ignored.
func ParseContentType(s string) (ContentType, bool) {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	ct, ok := contentTypes[strings.ToLower(strings.TrimSpace(s))]
	return ct, ok
}

// ContentTypeFromExt resolves a file extension (with or without the dot).
func ContentTypeFromExt(ext string) (ContentType, bool) {
	ct, ok := byExtension[NormalizeExt(ext)]
	return ct, ok
}

// Format reports which extractor family handles ct.
func (ct ContentType) Format() (Format, bool) {
	switch ct {
	case ContentTypePDF:
		return FormatPDF, true
	case ContentTypePNG, ContentTypeJPEG:
		return FormatImage, true
	}
	return "", false
}

// Ext returns the storage extension for ct, or "" when unknown.
func (ct ContentType) Ext() string {
	return extensions[ct]
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
