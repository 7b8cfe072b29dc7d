package table

import (
	"sort"
	"strings"
	"sync"
	"time"

	"subscraper/pkg/models"
)

// Column names the sortable fields of the table view.
type Column string

const (
	ColIndex        Column = "number"
	ColCart         Column = "download_cart"
	ColUsername     Column = "username"
	ColDownloaded   Column = "downloaded"
	ColUnlocked     Column = "unlocked"
	ColOtherPosts   Column = "other_posts_with_media"
	ColLength       Column = "length"
	ColMediaType    Column = "mediatype"
	ColPostDate     Column = "post_date"
	ColMediaCount   Column = "post_media_count"
	ColResponseType Column = "responsetype"
	ColPrice        Column = "price"
	ColLiked        Column = "liked"
	ColPostID       Column = "post_id"
	ColMediaID      Column = "media_id"
	ColText         Column = "text"
)

// Table holds the full row set plus the filtered view presented to the
// user. Safe for concurrent use; the scraper appends rows while the UI
// reads the visible slice.
type Table struct {
	mu      sync.RWMutex
	rows    []*Row
	visible []*Row
	filter  *FilterState

	sortCol  Column
	sortDesc bool
}

func New() *Table {
	return &Table{}
}

// Load replaces all rows, resetting any active filter.
func (t *Table) Load(rows []*Row) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, r := range rows {
		r.Index = i
		if r.Cart == "" {
			r.Cart = CartEmpty
		}
	}
	t.rows = rows
	t.filter = nil
	t.rebuild()
}

// Append adds new rows, skipping any whose identity is already present.
// Returns the number of rows actually added.
func (t *Table) Append(rows []*Row) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing := make(map[string]bool, len(t.rows))
	for _, r := range t.rows {
		existing[r.identity()] = true
	}

	added := 0
	for _, r := range rows {
		if existing[r.identity()] {
			continue
		}
		existing[r.identity()] = true
		r.Index = len(t.rows)
		if r.Cart == "" {
			r.Cart = CartEmpty
		}
		t.rows = append(t.rows, r)
		added++
	}
	if added > 0 {
		t.rebuild()
	}
	return added
}

// Clear drops all rows ahead of a new scan run.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = nil
	t.visible = nil
	t.filter = nil
}

// SetFilter applies a filter snapshot; nil shows every row.
func (t *Table) SetFilter(f *FilterState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter = f
	t.rebuild()
}

// Visible returns a copy of the filtered, sorted row slice.
func (t *Table) Visible() []*Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Row, len(t.visible))
	copy(out, t.visible)
	return out
}

// Len returns the total row count, ignoring filters.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// SortBy orders the visible rows by the given column. Sorting by the
// current column again flips the direction.
func (t *Table) SortBy(col Column) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if col == t.sortCol {
		t.sortDesc = !t.sortDesc
	} else {
		t.sortCol = col
		t.sortDesc = false
	}
	t.sortVisible()
}

func (t *Table) rebuild() {
	if t.filter == nil {
		t.visible = append([]*Row(nil), t.rows...)
	} else {
		t.visible = t.visible[:0]
		for _, r := range t.rows {
			if t.filter.Matches(r) {
				t.visible = append(t.visible, r)
			}
		}
	}
	if t.sortCol != "" {
		t.sortVisible()
	}
}

func (t *Table) sortVisible() {
	col, desc := t.sortCol, t.sortDesc
	sort.SliceStable(t.visible, func(i, j int) bool {
		a, b := t.visible[i], t.visible[j]
		if desc {
			a, b = b, a
		}
		switch col {
		case ColIndex:
			return a.Index < b.Index
		case ColPrice:
			return a.Price < b.Price
		case ColPostDate:
			return a.PostDate.Before(b.PostDate)
		case ColLength:
			return a.Length < b.Length
		case ColMediaCount:
			return a.PostMediaCount < b.PostMediaCount
		case ColOtherPosts:
			return len(a.OtherPosts) < len(b.OtherPosts)
		case ColPostID:
			return a.PostID < b.PostID
		case ColMediaID:
			return a.MediaID < b.MediaID
		case ColDownloaded:
			return !a.Downloaded && b.Downloaded
		case ColUsername:
			return strings.ToLower(a.Username) < strings.ToLower(b.Username)
		case ColUnlocked:
			return a.Unlocked < b.Unlocked
		case ColMediaType:
			return a.MediaType < b.MediaType
		case ColResponseType:
			return strings.ToLower(a.ResponseType) < strings.ToLower(b.ResponseType)
		case ColLiked:
			return a.Liked < b.Liked
		case ColCart:
			return a.Cart < b.Cart
		default:
			return strings.ToLower(a.Text) < strings.ToLower(b.Text)
		}
	})
}

// ToggleCart flips a visible row in or out of the cart. Locked rows and
// rows already downloading cannot be toggled.
func (t *Table) ToggleCart(visibleIdx int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if visibleIdx < 0 || visibleIdx >= len(t.visible) {
		return false
	}
	r := t.visible[visibleIdx]
	if r.Unlocked == models.UnlockLocked {
		return false
	}
	switch r.Cart {
	case CartEmpty:
		r.Cart = CartAdded
	case CartAdded, CartDownloaded, CartFailed:
		r.Cart = CartEmpty
	default:
		return false
	}
	return true
}

// SelectAllCart adds every visible unlocked row to the cart.
func (t *Table) SelectAllCart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.visible {
		if r.Cart == CartEmpty && r.Unlocked != models.UnlockLocked {
			r.Cart = CartAdded
		}
	}
}

// DeselectAllCart empties the cart across the visible rows.
func (t *Table) DeselectAllCart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.visible {
		if r.Cart == CartAdded {
			r.Cart = CartEmpty
		}
	}
}

// CartCount returns how many rows are queued for download.
func (t *Table) CartCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, r := range t.rows {
		if r.Cart == CartAdded {
			n++
		}
	}
	return n
}

// TakeCart returns the queued rows and marks them downloading.
func (t *Table) TakeCart() []*Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Row
	for _, r := range t.rows {
		if r.Cart == CartAdded {
			r.Cart = CartDownloading
			out = append(out, r)
		}
	}
	return out
}

// MarkDownloadResult records a finished download against the matching
// media row and flips its downloaded flag on success.
func (t *Table) MarkDownloadResult(mediaID int64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.rows {
		if r.MediaID != mediaID {
			continue
		}
		if ok {
			r.Cart = CartDownloaded
			r.Downloaded = true
		} else {
			r.Cart = CartFailed
		}
	}
}

// ApplyLikeResults updates the liked column for every row sharing a
// post id in the result set.
func (t *Table) ApplyLikeResults(results map[int64]LikeState) {
	if len(results) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.rows {
		if state, ok := results[r.PostID]; ok {
			r.Liked = state
		}
	}
}

// RowsSince filters the full set to posts on or after the cutoff,
// used when re-rendering after an incremental rescan.
func (t *Table) RowsSince(cutoff time.Time) []*Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Row
	for _, r := range t.rows {
		if !r.PostDate.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
