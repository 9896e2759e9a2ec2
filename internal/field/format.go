package field

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"tush00nka/s3files/internal/model"
)

// Href returns the public link of att.
func (f *Field) Href(att model.Attachment) string {
	if att.Filename == "" {
		return ""
	}
	if f.cfg.Prefix == "" {
		return att.URL
	}
	if strings.Contains(f.cfg.Prefix, "://") {
		if link, err := url.JoinPath(f.cfg.Prefix, att.Filename); err == nil {
			return link
		}
	}
	return path.Join(f.cfg.Prefix, att.Filename)
}

// Summary renders the number of files, e.g. "1 File" or "3 Files".
func (f *Field) Summary(entity Entity) string {
	n := len(entity.Attachments(f.path))
	if n == 1 {
		return "1 File"
	}
	return fmt.Sprintf("%d Files", n)
}

// FormatItem renders the i-th attachment using the configured formatter,
// falling back to its filename.
func (f *Field) FormatItem(entity Entity, i int) string {
	list := entity.Attachments(f.path)
	if i < 0 || i >= len(list) {
		return ""
	}
	att := list[i]
	if f.cfg.Format != nil {
		return f.cfg.Format(entity, att, f.Href(att))
	}
	return att.Filename
}
