package scraper

import (
	"context"
	"io"

	"subscraper/pkg/platform"
)

// Client defines the platform API operations the orchestrator needs.
type Client interface {
	GetUser(ctx context.Context, username string) (*platform.User, error)
	GetSubscriptions(ctx context.Context, offset, limit int) (*platform.SubscriptionsResponse, error)
	GetTimeline(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error)
	GetPinned(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error)
	GetArchived(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error)
	GetStreams(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error)
	GetLabels(ctx context.Context, userID int64, offset, limit int) (*platform.LabelsResponse, error)
	GetLabelPosts(ctx context.Context, userID, labelID int64, cursor string, limit int) (*platform.PostsResponse, error)
	GetStories(ctx context.Context, userID int64) ([]platform.Story, error)
	GetHighlights(ctx context.Context, userID int64, offset, limit int) ([]platform.Highlight, error)
	GetHighlight(ctx context.Context, highlightID int64) (*platform.Highlight, error)
	GetMessages(ctx context.Context, chatID, lastID int64, limit int) (*platform.MessagesResponse, error)
	GetPurchased(ctx context.Context, offset, limit int) (*platform.PostsResponse, error)
	LikePost(ctx context.Context, postID, userID int64) error
	UnlikePost(ctx context.Context, postID, userID int64) error
	DownloadMedia(ctx context.Context, url string, w io.Writer) (int64, error)
}
