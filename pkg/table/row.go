// Package table holds the in-memory media table backing the interactive
// browser: rows assembled from the cache database, a filter state, sort
// helpers, and the download cart.
package table

import (
	"fmt"
	"time"

	"subscraper/pkg/models"
)

// CartState tracks a row's position in the download cart lifecycle.
type CartState string

const (
	CartEmpty       CartState = "[]"
	CartAdded       CartState = "[added]"
	CartDownloading CartState = "[downloading]"
	CartDownloaded  CartState = "[downloaded]"
	CartFailed      CartState = "[failed]"
)

// LikeState is the outcome of the most recent like/unlike action on a
// row's post, empty when no action has run.
type LikeState string

const (
	LikeNone     LikeState = ""
	LikeLiked    LikeState = "Liked"
	LikeUnliked  LikeState = "Unliked"
	LikeFailedOp LikeState = "Failed"
)

// Row is one media item as shown in the table.
type Row struct {
	Index          int
	Cart           CartState
	Username       string
	Downloaded     bool
	Unlocked       models.UnlockStatus
	OtherPosts     []int64
	Length         time.Duration
	MediaType      models.MediaType
	PostDate       time.Time
	PostMediaCount int
	ResponseType   string
	Price          float64
	Liked          LikeState
	PostID         int64
	MediaID        int64
	Text           string
	URL            string
	Directory      string
	Filename       string
}

// identity distinguishes rows across models and reposts. Media ids are
// not unique on their own because creators can attach the same media to
// several posts.
func (r *Row) identity() string {
	return fmt.Sprintf("%s|%d|%d|%s", r.Username, r.MediaID, r.PostID, r.ResponseType)
}

// PriceLabel renders the price column value, "Free" for zero.
func (r *Row) PriceLabel() string {
	if r.Price == 0 {
		return "Free"
	}
	return fmt.Sprintf("%.2f", r.Price)
}

// LengthLabel renders duration as h:m:s, "N/A" for non-timed media.
func (r *Row) LengthLabel() string {
	if r.Length == 0 && r.MediaType != models.MediaVideo && r.MediaType != models.MediaAudio {
		return "N/A"
	}
	d := r.Length.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
