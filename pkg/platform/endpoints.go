package platform

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for the platform API
	BaseURL = "https://onlyfans.com"

	// DefaultPageLimit is the default number of items fetched per page
	DefaultPageLimit = 50

	// MaxPageLimit is the API's hard cap on items per page
	MaxPageLimit = 100
)

// clampLimit keeps a page limit within API bounds
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// GetMeURL returns the endpoint for the authenticated user
func GetMeURL() string {
	return BaseURL + "/api2/v2/users/me"
}

// GetUserURL returns the endpoint for looking up a model by username
func GetUserURL(username string) string {
	return fmt.Sprintf("%s/api2/v2/users/%s", BaseURL, url.PathEscape(username))
}

// GetSubscriptionsURL returns the paged subscriptions list endpoint
func GetSubscriptionsURL(offset, limit int) string {
	params := url.Values{}
	params.Set("type", "all")
	params.Set("limit", fmt.Sprintf("%d", clampLimit(limit)))
	params.Set("offset", fmt.Sprintf("%d", offset))
	return fmt.Sprintf("%s/api2/v2/subscriptions/subscribes?%s", BaseURL, params.Encode())
}

// postsURL builds a paged posts endpoint under a user
func postsURL(userID int64, suffix, cursor string, limit int, extra url.Values) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", clampLimit(limit)))
	params.Set("order", "publish_date_desc")
	params.Set("format", "infinite")
	if cursor != "" {
		params.Set("beforePublishTime", cursor)
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	return fmt.Sprintf("%s/api2/v2/users/%d/posts%s?%s", BaseURL, userID, suffix, params.Encode())
}

// GetTimelineURL returns the timeline posts endpoint
func GetTimelineURL(userID int64, cursor string, limit int) string {
	return postsURL(userID, "", cursor, limit, nil)
}

// GetPinnedURL returns the pinned posts endpoint
func GetPinnedURL(userID int64, cursor string, limit int) string {
	extra := url.Values{}
	extra.Set("pinned", "1")
	return postsURL(userID, "", cursor, limit, extra)
}

// GetArchivedURL returns the archived posts endpoint
func GetArchivedURL(userID int64, cursor string, limit int) string {
	return postsURL(userID, "/archived", cursor, limit, nil)
}

// GetStreamsURL returns the recorded streams endpoint
func GetStreamsURL(userID int64, cursor string, limit int) string {
	return postsURL(userID, "/streams", cursor, limit, nil)
}

// GetLabelPostsURL returns the endpoint for posts under a label
func GetLabelPostsURL(userID, labelID int64, cursor string, limit int) string {
	extra := url.Values{}
	extra.Set("label", fmt.Sprintf("%d", labelID))
	return postsURL(userID, "", cursor, limit, extra)
}

// GetLabelsURL returns the endpoint listing a model's labels
func GetLabelsURL(userID int64, offset, limit int) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", clampLimit(limit)))
	params.Set("offset", fmt.Sprintf("%d", offset))
	return fmt.Sprintf("%s/api2/v2/users/%d/labels?%s", BaseURL, userID, params.Encode())
}

// GetStoriesURL returns the stories endpoint
func GetStoriesURL(userID int64) string {
	return fmt.Sprintf("%s/api2/v2/users/%d/stories", BaseURL, userID)
}

// GetHighlightsURL returns the highlights list endpoint
func GetHighlightsURL(userID int64, offset, limit int) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", clampLimit(limit)))
	params.Set("offset", fmt.Sprintf("%d", offset))
	return fmt.Sprintf("%s/api2/v2/users/%d/stories/highlights?%s", BaseURL, userID, params.Encode())
}

// GetHighlightURL returns the endpoint for one highlight's stories
func GetHighlightURL(highlightID int64) string {
	return fmt.Sprintf("%s/api2/v2/stories/highlights/%d", BaseURL, highlightID)
}

// GetMessagesURL returns the paged chat messages endpoint.
// lastID of 0 fetches the newest page.
func GetMessagesURL(chatID int64, lastID int64, limit int) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", clampLimit(limit)))
	params.Set("order", "desc")
	if lastID > 0 {
		params.Set("id", fmt.Sprintf("%d", lastID))
	}
	return fmt.Sprintf("%s/api2/v2/chats/%d/messages?%s", BaseURL, chatID, params.Encode())
}

// GetPurchasedURL returns the paged purchased content endpoint
func GetPurchasedURL(offset, limit int) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", clampLimit(limit)))
	params.Set("offset", fmt.Sprintf("%d", offset))
	return fmt.Sprintf("%s/api2/v2/posts/paid?%s", BaseURL, params.Encode())
}

// GetFavoriteURL returns the like/unlike endpoint for a post
func GetFavoriteURL(postID, userID int64) string {
	return fmt.Sprintf("%s/api2/v2/posts/%d/favorites/%d", BaseURL, postID, userID)
}

// IsValidUsername checks if a username is plausible for the platform
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 64 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_' || char == '-') {
			return false
		}
	}

	return true
}

// SanitizeUsername removes decoration users paste in with a username
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	// Remove @ symbol if present at the beginning
	if username[0] == '@' {
		username = username[1:]
	}

	// Remove any trailing slashes or spaces
	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
