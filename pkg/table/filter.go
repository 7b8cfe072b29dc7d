package table

import (
	"regexp"
	"strings"
	"time"

	"subscraper/pkg/models"
)

// FilterState is a snapshot of the sidebar filter controls. Zero-value
// pointers and nil sets mean "no restriction" for that field.
type FilterState struct {
	TextSearch      string
	FullStringMatch bool

	MediaTypes    map[models.MediaType]bool
	ResponseTypes map[string]bool

	Downloaded *bool
	Unlocked   map[models.UnlockStatus]bool

	MinDate *time.Time
	MaxDate *time.Time

	MinLength *time.Duration
	MaxLength *time.Duration

	MinPrice *float64
	MaxPrice *float64

	MediaID        *int64
	PostID         *int64
	PostMediaCount *int
	OtherPostCount *int

	Username string
}

// Matches reports whether the row passes every active filter.
func (f *FilterState) Matches(r *Row) bool {
	if !f.matchText(r.Text) {
		return false
	}
	if f.MediaTypes != nil && !f.MediaTypes[r.MediaType] {
		return false
	}
	if f.ResponseTypes != nil && !f.matchResponseType(r.ResponseType) {
		return false
	}
	if f.Downloaded != nil && r.Downloaded != *f.Downloaded {
		return false
	}
	if f.Unlocked != nil && !f.Unlocked[r.Unlocked] {
		return false
	}
	if !f.matchDate(r.PostDate) {
		return false
	}
	if !f.matchLength(r.Length) {
		return false
	}
	if f.MinPrice != nil && r.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && r.Price > *f.MaxPrice {
		return false
	}
	if f.MediaID != nil && r.MediaID != *f.MediaID {
		return false
	}
	if f.PostID != nil && r.PostID != *f.PostID {
		return false
	}
	if f.PostMediaCount != nil && r.PostMediaCount != *f.PostMediaCount {
		return false
	}
	if f.OtherPostCount != nil && len(r.OtherPosts) != *f.OtherPostCount {
		return false
	}
	if f.Username != "" && !strings.Contains(strings.ToLower(r.Username), strings.ToLower(f.Username)) {
		return false
	}
	return true
}

// matchText treats the search as a case-insensitive regex, falling back
// to a plain substring match when the pattern does not compile.
func (f *FilterState) matchText(text string) bool {
	if f.TextSearch == "" {
		return true
	}
	pattern := "(?i)" + f.TextSearch
	if f.FullStringMatch {
		pattern = "(?i)^(?:" + f.TextSearch + ")$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return strings.Contains(strings.ToLower(text), strings.ToLower(f.TextSearch))
	}
	return re.MatchString(text)
}

func (f *FilterState) matchResponseType(rt string) bool {
	for allowed := range f.ResponseTypes {
		if strings.EqualFold(allowed, rt) {
			return true
		}
	}
	return false
}

func (f *FilterState) matchDate(d time.Time) bool {
	if f.MinDate == nil && f.MaxDate == nil {
		return true
	}
	if d.IsZero() {
		return true
	}
	day := d.Truncate(24 * time.Hour)
	if f.MinDate != nil && day.Before(f.MinDate.Truncate(24*time.Hour)) {
		return false
	}
	if f.MaxDate != nil && day.After(f.MaxDate.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

func (f *FilterState) matchLength(d time.Duration) bool {
	if f.MinLength != nil && d < *f.MinLength {
		return false
	}
	if f.MaxLength != nil && d > *f.MaxLength {
		return false
	}
	return true
}
