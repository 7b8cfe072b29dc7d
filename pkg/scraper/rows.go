package scraper

import (
	"strings"
	"time"

	"subscraper/pkg/db"
	"subscraper/pkg/models"
	"subscraper/pkg/table"
)

// LoadTableRows reads a model's cache database into rows for the
// interactive table.
func LoadTableRows(store *db.Store, username string) ([]*table.Row, error) {
	records, err := store.MediaRows()
	if err != nil {
		return nil, err
	}

	rows := make([]*table.Row, 0, len(records))
	for i := range records {
		rows = append(rows, buildRow(&records[i], username))
	}
	return rows, nil
}

func buildRow(rec *db.MediaRow, username string) *table.Row {
	unlock := deriveDBUnlock(rec)

	cart := table.CartEmpty
	if rec.Downloaded {
		cart = table.CartDownloaded
	}

	return &table.Row{
		Cart:         cart,
		Username:     username,
		Downloaded:   rec.Downloaded,
		Unlocked:     unlock,
		Length:       time.Duration(rec.Duration * float64(time.Second)),
		MediaType:    models.MediaType(rec.MediaType),
		PostDate:     rec.PostedAt,
		ResponseType: rec.APIType,
		Price:        rec.Price,
		PostID:       rec.PostID,
		MediaID:      rec.MediaID,
		Text:         rec.Text,
		URL:          rec.Link,
		Directory:    rec.Directory,
		Filename:     rec.Filename,
	}
}

// deriveDBUnlock reconstructs the unlock status from cached flags. The
// opened state is not stored per media, so priced messages that are
// viewable count as included or preview content.
func deriveDBUnlock(rec *db.MediaRow) models.UnlockStatus {
	if !rec.Unlocked {
		return models.UnlockLocked
	}
	if rec.Price > 0 && strings.HasPrefix(strings.ToLower(rec.APIType), "message") {
		if rec.Preview {
			return models.UnlockPreview
		}
		return models.UnlockIncluded
	}
	if rec.Preview && rec.Price > 0 {
		return models.UnlockPreview
	}
	return models.UnlockTrue
}
