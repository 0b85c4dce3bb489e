// Package pdfsource resolves tool input items into raw PDF bytes. An item
// carries either embedded base64 bytes or a remote URL; everything else on
// it only improves output labelling.
package pdfsource

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// FallbackFilename is used when an item carries no name and no URL to derive one from
const FallbackFilename = "document.pdf"

// FileItem is one entry of a tool's file arguments
type FileItem struct {
	Blob      string
	URL       string
	RemoteURL string
	Filename  string
	MimeType  string
	Size      int64
}

// Parse converts a raw argument entry into a FileItem.
// Returns false if the entry is not an object at all.
func Parse(raw any) (*FileItem, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}

	item := &FileItem{
		Blob:      stringField(m, "blob"),
		URL:       stringField(m, "url"),
		RemoteURL: stringField(m, "remote_url"),
		Filename:  stringField(m, "filename"),
		MimeType:  stringField(m, "mime_type"),
	}

	switch v := m["size"].(type) {
	case float64:
		item.Size = int64(v)
	case int64:
		item.Size = v
	case int:
		item.Size = int64(v)
	}

	return item, true
}

// stringField returns the trimmed string value for key, or "" when absent or not a string
func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// SourceURL returns the item's remote source, preferring `url` over `remote_url`
func (i *FileItem) SourceURL() string {
	if i.URL != "" {
		return i.URL
	}
	return i.RemoteURL
}

// DisplayName infers a filename for output labelling: an explicit filename
// wins, then the URL path leaf with any query string stripped, then the
// fallback name.
func (i *FileItem) DisplayName() string {
	if i.Filename != "" {
		return i.Filename
	}

	if u := i.SourceURL(); u != "" {
		base := u
		if idx := strings.Index(base, "?"); idx >= 0 {
			base = base[:idx]
		}
		if leaf := base[strings.LastIndex(base, "/")+1:]; leaf != "" {
			return leaf
		}
	}

	return FallbackFilename
}

// DecodeBlob decodes the item's base64 blob. Both standard and raw (unpadded)
// encodings are accepted since hosts differ on padding.
func (i *FileItem) DecodeBlob() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(i.Blob)
	if err == nil {
		return data, nil
	}
	if data, rawErr := base64.RawStdEncoding.DecodeString(i.Blob); rawErr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("invalid base64 in 'blob': %w", err)
}
