// Package models defines the domain vocabulary shared by the scraper,
// filters, and UI: content areas, media kinds, and unlock status.
package models

import "strings"

// Area identifies a content section of a creator's profile.
type Area string

const (
	AreaTimeline   Area = "Timeline"
	AreaPinned     Area = "Pinned"
	AreaArchived   Area = "Archived"
	AreaHighlights Area = "Highlights"
	AreaStories    Area = "Stories"
	AreaMessages   Area = "Messages"
	AreaPurchased  Area = "Purchased"
	AreaStreams    Area = "Streams"
	AreaLabels     Area = "Labels"
)

// DownloadAreas lists every area that can be scanned for media.
var DownloadAreas = []Area{
	AreaTimeline,
	AreaPinned,
	AreaArchived,
	AreaHighlights,
	AreaStories,
	AreaMessages,
	AreaPurchased,
	AreaStreams,
	AreaLabels,
}

// LikeAreas lists the areas whose posts accept like/unlike actions.
var LikeAreas = []Area{
	AreaTimeline,
	AreaPinned,
	AreaArchived,
	AreaStreams,
	AreaLabels,
}

// ParseArea resolves a case-insensitive area name.
func ParseArea(name string) (Area, bool) {
	for _, a := range DownloadAreas {
		if strings.EqualFold(string(a), name) {
			return a, true
		}
	}
	return "", false
}

// Likeable reports whether like/unlike actions apply to the area.
func (a Area) Likeable() bool {
	for _, l := range LikeAreas {
		if a == l {
			return true
		}
	}
	return false
}

// MediaType is the normalized kind of a media item.
type MediaType string

const (
	MediaImage MediaType = "images"
	MediaVideo MediaType = "videos"
	MediaAudio MediaType = "audios"
	MediaText  MediaType = "text"
)

// NormalizeMediaType maps the API's media type names onto storage
// directory names. Unknown kinds fall through unchanged.
func NormalizeMediaType(apiType string) MediaType {
	switch strings.ToLower(apiType) {
	case "photo", "image", "images":
		return MediaImage
	case "video", "videos", "gif":
		return MediaVideo
	case "audio", "audios":
		return MediaAudio
	case "text":
		return MediaText
	default:
		return MediaType(strings.ToLower(apiType))
	}
}

// UnlockStatus describes whether the viewer has full access to a post's
// media, only a preview, or nothing.
type UnlockStatus string

const (
	UnlockLocked   UnlockStatus = "Locked"
	UnlockTrue     UnlockStatus = "True"
	UnlockPreview  UnlockStatus = "Preview"
	UnlockIncluded UnlockStatus = "Included"
)

// UnlockInput carries the post fields the unlock derivation inspects.
type UnlockInput struct {
	CanView      bool
	Price        float64
	ResponseType string
	Opened       bool
	Preview      bool
}

// DeriveUnlock classifies a post's access level. Paid messages that were
// never opened are either previewed or bundled ("Included") with a
// purchase elsewhere; paid non-message posts the viewer can see in full
// count as unlocked.
func DeriveUnlock(in UnlockInput) UnlockStatus {
	if !in.CanView {
		return UnlockLocked
	}
	if in.Price == 0 {
		return UnlockTrue
	}
	// The API reports "message" but area-derived fallbacks say "messages".
	if strings.HasPrefix(strings.ToLower(in.ResponseType), "message") && !in.Opened {
		if in.Preview {
			return UnlockPreview
		}
		return UnlockIncluded
	}
	if in.Preview {
		return UnlockPreview
	}
	return UnlockTrue
}
