package scraper

import (
	"context"
	"strconv"

	"subscraper/pkg/events"
	"subscraper/pkg/models"
	"subscraper/pkg/platform"
	"subscraper/pkg/ratelimit"
)

// likeRun likes or unlikes every post in the selected likeable areas.
func (s *Scraper) likeRun(ctx context.Context, user *platform.User, opts RunOptions, action Action, counters *runCounters) error {
	results := make(map[int64]string)

	for _, area := range opts.Areas {
		if !area.Likeable() {
			continue
		}
		if err := s.likeArea(ctx, user, area, action, results, counters); err != nil {
			return err
		}
	}

	if len(results) > 0 {
		s.hub.Emit(events.Event{Type: events.LikeResults, Model: user.Username, Likes: results})
	}
	return nil
}

func (s *Scraper) likeArea(ctx context.Context, user *platform.User, area models.Area, action Action, results map[int64]string, counters *runCounters) error {
	cursor := ""
	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}

		var page *platform.PostsResponse
		var err error
		switch area {
		case models.AreaPinned:
			page, err = s.client.GetPinned(ctx, user.ID, cursor, 0)
		case models.AreaArchived:
			page, err = s.client.GetArchived(ctx, user.ID, cursor, 0)
		case models.AreaStreams:
			page, err = s.client.GetStreams(ctx, user.ID, cursor, 0)
		case models.AreaLabels:
			return s.likeLabels(ctx, user, action, results, counters)
		default:
			page, err = s.client.GetTimeline(ctx, user.ID, cursor, 0)
		}
		if err != nil {
			return err
		}

		for i := range page.List {
			if err := s.applyLike(ctx, user, &page.List[i], action, results, counters); err != nil {
				return err
			}
		}

		if !page.HasMore {
			return nil
		}
		cursor = page.TailMarker
	}
}

func (s *Scraper) likeLabels(ctx context.Context, user *platform.User, action Action, results map[int64]string, counters *runCounters) error {
	offset := 0
	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}
		labels, err := s.client.GetLabels(ctx, user.ID, offset, 0)
		if err != nil {
			return err
		}

		for _, label := range labels.List {
			cursor := ""
			for {
				if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
					return err
				}
				page, err := s.client.GetLabelPosts(ctx, user.ID, label.ID, cursor, 0)
				if err != nil {
					return err
				}
				for i := range page.List {
					if err := s.applyLike(ctx, user, &page.List[i], action, results, counters); err != nil {
						return err
					}
				}
				if !page.HasMore {
					break
				}
				cursor = page.TailMarker
			}
		}

		if !labels.HasMore || len(labels.List) == 0 {
			return nil
		}
		offset += len(labels.List)
	}
}

// applyLike flips one post's favorite state, skipping posts already in
// the target state. Failures are recorded per post, not fatal.
func (s *Scraper) applyLike(ctx context.Context, user *platform.User, post *platform.Post, action Action, results map[int64]string, counters *runCounters) error {
	if _, seen := results[post.ID]; seen {
		return nil
	}

	want := action == ActionLike
	if post.IsFavorite == want {
		return nil
	}

	if err := ratelimit.WaitContext(ctx, s.likeLimiter); err != nil {
		return err
	}

	var err error
	if want {
		err = s.client.LikePost(ctx, post.ID, user.ID)
	} else {
		err = s.client.UnlikePost(ctx, post.ID, user.ID)
	}
	if err != nil {
		results[post.ID] = "Failed"
		s.logger.WarnWithFields("Favorite action failed", map[string]interface{}{
			"post_id": strconv.FormatInt(post.ID, 10),
			"action":  string(action),
			"error":   err.Error(),
		})
		return nil
	}

	if want {
		results[post.ID] = "Liked"
		counters.liked.Add(1)
	} else {
		results[post.ID] = "Unliked"
		counters.unliked.Add(1)
	}
	return nil
}
