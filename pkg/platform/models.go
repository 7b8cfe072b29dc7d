package platform

import (
	"time"
)

// User represents a platform account, either the authed user or a model
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	IsAuth   bool   `json:"isAuth,omitempty"`
}

// Subscription represents an entry from the subscriptions list
type Subscription struct {
	User
	SubscribedOn   *time.Time `json:"subscribedOnData,omitempty"`
	ExpiredAt      *time.Time `json:"expiredAt,omitempty"`
	RenewedAt      *time.Time `json:"renewedAt,omitempty"`
	SubscribePrice float64    `json:"subscribePrice"`
	Active         bool       `json:"subscribedIsActive"`
}

// MediaSource carries the downloadable variants of a media item
type MediaSource struct {
	Source string `json:"source"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// MediaItem is a single photo, video, audio or gif attached to a post
type MediaItem struct {
	ID       int64       `json:"id"`
	Type     string      `json:"type"`
	CanView  bool        `json:"canView"`
	Duration float64     `json:"duration,omitempty"`
	Source   MediaSource `json:"source"`
	Preview  string      `json:"preview,omitempty"`
	Full     string      `json:"full,omitempty"`
}

// URL returns the best downloadable URL for the media item
func (m *MediaItem) URL() string {
	if m.Source.Source != "" {
		return m.Source.Source
	}
	return m.Full
}

// Post is a content item from any area: timeline, messages, stories and the
// rest all share this shape with area-specific fields left zero.
type Post struct {
	ID           int64       `json:"id"`
	Text         string      `json:"text,omitempty"`
	Price        float64     `json:"price"`
	ResponseType string      `json:"responseType"`
	IsOpened     bool        `json:"isOpened"`
	IsFavorite   bool        `json:"isFavorite"`
	IsPinned     bool        `json:"isPinned,omitempty"`
	IsArchived   bool        `json:"isArchived,omitempty"`
	PostedAt     time.Time   `json:"postedAt"`
	Preview      []int64     `json:"preview,omitempty"`
	Media        []MediaItem `json:"media"`
	FromUser     *User       `json:"fromUser,omitempty"`
}

// IsPreviewMedia reports whether the given media id is flagged as a preview
func (p *Post) IsPreviewMedia(mediaID int64) bool {
	for _, id := range p.Preview {
		if id == mediaID {
			return true
		}
	}
	return false
}

// PostsResponse is a paged list of posts
type PostsResponse struct {
	List    []Post `json:"list"`
	HasMore bool   `json:"hasMore"`
	// TailMarker is the cursor for the next page on publish-time
	// paginated areas
	TailMarker string `json:"tailMarker,omitempty"`
}

// MessagesResponse is a paged list of chat messages
type MessagesResponse struct {
	List    []Post `json:"list"`
	HasMore bool   `json:"hasMore"`
}

// LastID returns the pagination anchor for the next messages page
func (r *MessagesResponse) LastID() int64 {
	if len(r.List) == 0 {
		return 0
	}
	return r.List[len(r.List)-1].ID
}

// SubscriptionsResponse is a paged list of subscriptions
type SubscriptionsResponse struct {
	List    []Subscription `json:"list"`
	HasMore bool           `json:"hasMore"`
}

// Story is a single story frame; highlights group stories under a title
type Story struct {
	ID       int64       `json:"id"`
	PostedAt time.Time   `json:"createdAt"`
	Media    []MediaItem `json:"media"`
}

// Highlight is a named collection of stories
type Highlight struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Stories []Story `json:"stories"`
}

// Label is a creator-defined grouping of posts
type Label struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PostCount int    `json:"postsCount"`
}

// LabelsResponse is a paged list of labels
type LabelsResponse struct {
	List    []Label `json:"list"`
	HasMore bool    `json:"hasMore"`
}
