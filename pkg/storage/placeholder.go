package storage

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subscraper/pkg/config"
)

// PlaceholderValues carries the per-media fields substituted into the
// configured dir_format and file_format templates.
type PlaceholderValues struct {
	ModelUsername string
	ModelID       int64
	ResponseType  string
	MediaType     string
	Filename      string
	Ext           string
	Text          string
	MediaID       int64
	PostID        int64
	Date          time.Time
}

// Renderer expands {placeholder} templates against a config's file
// options.
type Renderer struct {
	opts   config.FileOptions
	custom map[string]string
}

func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{
		opts:   cfg.FileOptions,
		custom: cfg.AdvancedOptions.CustomValues,
	}
}

// Dir renders the directory template relative to the save location.
func (r *Renderer) Dir(v PlaceholderValues) string {
	rendered := r.expand(r.opts.DirFormat, v)
	parts := strings.Split(rendered, "/")
	clean := parts[:0]
	for _, p := range parts {
		if p = sanitizePathComponent(p); p != "" {
			clean = append(clean, p)
		}
	}
	return filepath.Join(clean...)
}

// File renders the filename template.
func (r *Renderer) File(v PlaceholderValues) string {
	return sanitizePathComponent(r.expand(r.opts.FileFormat, v))
}

func (r *Renderer) expand(template string, v PlaceholderValues) string {
	text := v.Text
	if r.opts.TextLength > 0 && len([]rune(text)) > r.opts.TextLength {
		text = string([]rune(text)[:r.opts.TextLength])
	}
	if r.opts.SpaceReplacer != "" && r.opts.SpaceReplacer != " " {
		text = strings.ReplaceAll(text, " ", r.opts.SpaceReplacer)
	}

	pairs := []string{
		"{model_username}", v.ModelUsername,
		"{model_id}", formatInt(v.ModelID),
		"{responsetype}", v.ResponseType,
		"{mediatype}", v.MediaType,
		"{filename}", v.Filename,
		"{ext}", strings.TrimPrefix(v.Ext, "."),
		"{text}", text,
		"{media_id}", formatInt(v.MediaID),
		"{post_id}", formatInt(v.PostID),
		"{date}", v.Date.Format(dateLayout(r.opts.DateFormat)),
	}
	for k, val := range r.custom {
		pairs = append(pairs, "{"+k+"}", val)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func dateLayout(layout string) string {
	if layout == "" {
		return "2006-01-02"
	}
	return layout
}

func formatInt(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// sanitizePathComponent strips characters that are unsafe in file or
// directory names on common filesystems.
func sanitizePathComponent(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\x00':
			return '_'
		}
		return r
	}, s)
}
