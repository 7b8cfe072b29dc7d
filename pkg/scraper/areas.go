package scraper

import (
	"context"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"subscraper/internal/downloader"
	"subscraper/pkg/checkpoint"
	"subscraper/pkg/db"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/platform"
	"subscraper/pkg/ratelimit"
	"subscraper/pkg/storage"
)

// modelScan is the per-model state shared by concurrent area scans.
type modelScan struct {
	scraper    *Scraper
	user       *platform.User
	store      *db.Store
	pool       *downloader.WorkerPool
	cpMgr      *checkpoint.Manager
	cp         *checkpoint.Checkpoint
	opts       RunOptions
	counters   *runCounters
	downloaded map[int64]bool

	mu sync.Mutex
}

func (sc *modelScan) scanArea(ctx context.Context, area models.Area) error {
	s := sc.scraper
	start := time.Now()

	sc.mu.Lock()
	state := sc.cp.Area(area)
	resumeCursor, resumeID := state.Cursor, state.LastID
	alreadyDone := state.Completed
	sc.mu.Unlock()
	if alreadyDone {
		return nil
	}

	lastScan, err := sc.store.LastScan(sc.user.ID, area)
	if err != nil {
		return err
	}

	s.hub.Emit(eventArea(area, sc.user.Username, "started"))
	logger.LogAreaProgress(sc.user.Username, string(area), 0, 0)

	switch area {
	case models.AreaStories:
		err = sc.scanStories(ctx)
	case models.AreaHighlights:
		err = sc.scanHighlights(ctx)
	case models.AreaMessages:
		err = sc.scanMessages(ctx, resumeID, lastScan)
	case models.AreaPurchased:
		err = sc.scanPurchased(ctx)
	case models.AreaLabels:
		err = sc.scanLabels(ctx)
	default:
		err = sc.scanPosts(ctx, area, resumeCursor, lastScan)
	}
	if err != nil {
		return err
	}

	sc.mu.Lock()
	cperr := sc.cpMgr.CompleteArea(sc.cp, area)
	sc.mu.Unlock()
	if cperr != nil {
		s.logger.WarnWithFields("Failed to mark area complete", map[string]interface{}{
			"area":  string(area),
			"error": cperr.Error(),
		})
	}
	if err := sc.store.SetLastScan(sc.user.ID, area, start); err != nil {
		return err
	}
	s.hub.Emit(eventArea(area, sc.user.Username, "finished"))
	return nil
}

// scanPosts pages a publish-time cursored area: timeline, pinned,
// archived, or streams.
func (sc *modelScan) scanPosts(ctx context.Context, area models.Area, cursor string, lastScan time.Time) error {
	s := sc.scraper
	scanned := 0

	fetch := func(cursor string) (*platform.PostsResponse, error) {
		switch area {
		case models.AreaPinned:
			return s.client.GetPinned(ctx, sc.user.ID, cursor, 0)
		case models.AreaArchived:
			return s.client.GetArchived(ctx, sc.user.ID, cursor, 0)
		case models.AreaStreams:
			return s.client.GetStreams(ctx, sc.user.ID, cursor, 0)
		default:
			return s.client.GetTimeline(ctx, sc.user.ID, cursor, 0)
		}
	}

	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}
		page, err := fetch(cursor)
		if err != nil {
			return err
		}

		for i := range page.List {
			post := &page.List[i]
			// Pages arrive newest first; anything at or before the
			// last full scan has been seen already
			if !lastScan.IsZero() && !post.PostedAt.After(lastScan) {
				return nil
			}
			if err := sc.handlePost(ctx, post, area); err != nil {
				return err
			}
			scanned++
		}

		s.hub.Progress(sc.user.Username, area, scanned, 0)
		sc.saveAreaCursor(area, page.TailMarker, 0, len(page.List))

		if !page.HasMore || sc.reachedMax(scanned) {
			return nil
		}
		cursor = page.TailMarker
	}
}

func (sc *modelScan) scanMessages(ctx context.Context, lastID int64, lastScan time.Time) error {
	s := sc.scraper
	scanned := 0

	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}
		page, err := s.client.GetMessages(ctx, sc.user.ID, lastID, 0)
		if err != nil {
			return err
		}

		for i := range page.List {
			post := &page.List[i]
			if !lastScan.IsZero() && !post.PostedAt.After(lastScan) {
				return nil
			}
			if err := sc.handlePost(ctx, post, models.AreaMessages); err != nil {
				return err
			}
			scanned++
		}

		s.hub.Progress(sc.user.Username, models.AreaMessages, scanned, 0)
		sc.saveAreaCursor(models.AreaMessages, "", page.LastID(), len(page.List))

		if !page.HasMore || len(page.List) == 0 || sc.reachedMax(scanned) {
			return nil
		}
		lastID = page.LastID()
	}
}

func (sc *modelScan) scanPurchased(ctx context.Context) error {
	s := sc.scraper
	offset := 0
	scanned := 0

	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}
		page, err := s.client.GetPurchased(ctx, offset, 0)
		if err != nil {
			return err
		}

		for i := range page.List {
			post := &page.List[i]
			// The purchased feed spans all models; keep this model's
			if post.FromUser != nil && post.FromUser.ID != sc.user.ID {
				continue
			}
			if err := sc.handlePost(ctx, post, models.AreaPurchased); err != nil {
				return err
			}
			scanned++
		}

		s.hub.Progress(sc.user.Username, models.AreaPurchased, scanned, 0)
		if !page.HasMore || len(page.List) == 0 || sc.reachedMax(scanned) {
			return nil
		}
		offset += len(page.List)
	}
}

func (sc *modelScan) scanStories(ctx context.Context) error {
	s := sc.scraper
	if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
		return err
	}
	stories, err := s.client.GetStories(ctx, sc.user.ID)
	if err != nil {
		return err
	}
	for i := range stories {
		if err := sc.handleStory(ctx, &stories[i], models.AreaStories); err != nil {
			return err
		}
	}
	s.hub.Progress(sc.user.Username, models.AreaStories, len(stories), len(stories))
	return nil
}

func (sc *modelScan) scanHighlights(ctx context.Context) error {
	s := sc.scraper
	offset := 0
	scanned := 0

	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}
		highlights, err := s.client.GetHighlights(ctx, sc.user.ID, offset, 0)
		if err != nil {
			return err
		}
		if len(highlights) == 0 {
			return nil
		}

		for i := range highlights {
			if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
				return err
			}
			full, err := s.client.GetHighlight(ctx, highlights[i].ID)
			if err != nil {
				return err
			}
			for j := range full.Stories {
				if err := sc.handleStory(ctx, &full.Stories[j], models.AreaHighlights); err != nil {
					return err
				}
				scanned++
			}
		}

		s.hub.Progress(sc.user.Username, models.AreaHighlights, scanned, 0)
		offset += len(highlights)
	}
}

func (sc *modelScan) scanLabels(ctx context.Context) error {
	s := sc.scraper
	offset := 0

	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}
		page, err := s.client.GetLabels(ctx, sc.user.ID, offset, 0)
		if err != nil {
			return err
		}

		for _, label := range page.List {
			if err := sc.scanLabelPosts(ctx, label); err != nil {
				return err
			}
		}

		if !page.HasMore || len(page.List) == 0 {
			return nil
		}
		offset += len(page.List)
	}
}

func (sc *modelScan) scanLabelPosts(ctx context.Context, label platform.Label) error {
	s := sc.scraper
	cursor := ""
	scanned := 0

	for {
		if err := ratelimit.WaitContext(ctx, s.limiter); err != nil {
			return err
		}
		page, err := s.client.GetLabelPosts(ctx, sc.user.ID, label.ID, cursor, 0)
		if err != nil {
			return err
		}

		for i := range page.List {
			if err := sc.handlePost(ctx, &page.List[i], models.AreaLabels); err != nil {
				return err
			}
			scanned++
		}

		s.hub.Progress(sc.user.Username, models.AreaLabels, scanned, label.PostCount)
		if !page.HasMore || sc.reachedMax(scanned) {
			return nil
		}
		cursor = page.TailMarker
	}
}

// handlePost records a post and queues its viewable media.
func (sc *modelScan) handlePost(ctx context.Context, post *platform.Post, area models.Area) error {
	responseType := post.ResponseType
	if responseType == "" {
		responseType = strings.ToLower(string(area))
	}

	rec := db.PostRecord{
		PostID:   post.ID,
		ModelID:  sc.user.ID,
		Text:     post.Text,
		Price:    post.Price,
		Paid:     post.Price > 0 && post.IsOpened,
		Archived: post.IsArchived,
		Pinned:   post.IsPinned,
		Opened:   post.IsOpened,
		PostedAt: post.PostedAt,
	}
	sc.mu.Lock()
	err := sc.store.UpsertPost(responseType, rec)
	sc.mu.Unlock()
	if err != nil {
		return err
	}

	sc.counters.scanned.Add(1)

	for i := range post.Media {
		m := &post.Media[i]
		unlock := models.DeriveUnlock(models.UnlockInput{
			CanView:      m.CanView,
			Price:        post.Price,
			ResponseType: responseType,
			Opened:       post.IsOpened,
			Preview:      post.IsPreviewMedia(m.ID),
		})
		if err := sc.handleMedia(ctx, m, post.ID, responseType, post.PostedAt, unlock); err != nil {
			return err
		}
	}
	return nil
}

// handleStory records a story frame's media; stories are never priced.
func (sc *modelScan) handleStory(ctx context.Context, story *platform.Story, area models.Area) error {
	responseType := strings.ToLower(string(area))

	rec := db.PostRecord{
		PostID:   story.ID,
		ModelID:  sc.user.ID,
		PostedAt: story.PostedAt,
	}
	sc.mu.Lock()
	err := sc.store.UpsertPost("stories", rec)
	sc.mu.Unlock()
	if err != nil {
		return err
	}

	sc.counters.scanned.Add(1)

	for i := range story.Media {
		m := &story.Media[i]
		unlock := models.UnlockTrue
		if !m.CanView {
			unlock = models.UnlockLocked
		}
		if err := sc.handleMedia(ctx, m, story.ID, responseType, story.PostedAt, unlock); err != nil {
			return err
		}
	}
	return nil
}

func (sc *modelScan) handleMedia(ctx context.Context, m *platform.MediaItem, postID int64, responseType string, postedAt time.Time, unlock models.UnlockStatus) error {
	mediaType := models.NormalizeMediaType(m.Type)
	preview := unlock == models.UnlockPreview

	mrec := db.MediaRecord{
		MediaID:   m.ID,
		PostID:    postID,
		ModelID:   sc.user.ID,
		APIType:   responseType,
		MediaType: string(mediaType),
		Link:      m.URL(),
		Duration:  m.Duration,
		Preview:   preview,
		Unlocked:  unlock != models.UnlockLocked,
		PostedAt:  postedAt,
	}
	sc.mu.Lock()
	err := sc.store.UpsertMedia(mrec)
	sc.mu.Unlock()
	if err != nil {
		return err
	}

	mediaURL := m.URL()
	if unlock == models.UnlockLocked || mediaURL == "" || sc.opts.MetadataOnly {
		return nil
	}

	sc.mu.Lock()
	dupe := sc.downloaded != nil && sc.downloaded[m.ID]
	if !dupe && sc.downloaded != nil {
		sc.downloaded[m.ID] = true
	}
	sc.mu.Unlock()
	if dupe {
		return nil
	}

	filename := mediaFilename(mediaURL, m.ID)
	dir, file := sc.scraper.storage.PathFor(storage.PlaceholderValues{
		ModelUsername: sc.user.Username,
		ModelID:       sc.user.ID,
		ResponseType:  responseType,
		MediaType:     string(mediaType),
		Filename:      strings.TrimSuffix(filename, path.Ext(filename)),
		Ext:           strings.TrimPrefix(path.Ext(filename), "."),
		MediaID:       m.ID,
		PostID:        postID,
		Date:          postedAt,
	})

	job := downloader.Job{
		URL:       mediaURL,
		MediaID:   m.ID,
		PostID:    postID,
		Username:  sc.user.Username,
		Directory: dir,
		Filename:  file,
	}
	if err := sc.pool.Submit(job); err != nil {
		return err
	}
	sc.counters.queued.Add(1)
	return nil
}

func (sc *modelScan) saveAreaCursor(area models.Area, cursor string, lastID int64, scanned int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.cpMgr.UpdateArea(sc.cp, area, cursor, lastID, scanned); err != nil {
		sc.scraper.logger.WarnWithFields("Failed to save scan cursor", map[string]interface{}{
			"area":  string(area),
			"error": err.Error(),
		})
	}
}

func (sc *modelScan) reachedMax(scanned int) bool {
	limit := sc.scraper.cfg.DownloadOptions.MaxPostCount
	return limit > 0 && scanned >= limit
}

// mediaFilename derives a stable filename from the media URL, falling
// back to the media id when the URL has no usable basename.
func mediaFilename(rawURL string, mediaID int64) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return strconv.FormatInt(mediaID, 10)
}

func eventArea(area models.Area, model, phase string) events.Event {
	t := events.AreaStarted
	if phase == "finished" {
		t = events.AreaFinished
	}
	return events.Event{Type: t, Model: model, Area: area}
}
