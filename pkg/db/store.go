package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	errs "subscraper/pkg/errors"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
)

const dbFileName = "user_data.db"

// Store wraps one model's user_data.db.
type Store struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

// PostRecord is a row in the posts, messages, or stories tables.
type PostRecord struct {
	PostID   int64
	ModelID  int64
	Text     string
	Price    float64
	Paid     bool
	Archived bool
	Pinned   bool
	Opened   bool
	PostedAt time.Time
}

// MediaRecord is a row in the medias table.
type MediaRecord struct {
	MediaID    int64
	PostID     int64
	ModelID    int64
	APIType    string
	MediaType  string
	Link       string
	Directory  string
	Filename   string
	Size       int64
	Hash       string
	Duration   float64
	Preview    bool
	Linked     bool
	Downloaded bool
	Unlocked   bool
	PostedAt   time.Time
}

// ModelDBPath places a model's database under the save location the
// same way downloads are laid out, one directory per creator.
func ModelDBPath(saveLocation, username string) string {
	return filepath.Join(saveLocation, username, "Metadata", dbFileName)
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to create database directory", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=10000&_journal_mode=WAL")
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to open database", err)
	}
	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to apply schema", err)
	}

	return &Store{db: db, path: path, logger: log}, nil
}

// OpenMemory opens an in-memory database, used by tests.
func OpenMemory(log logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to open database", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to apply schema", err)
	}
	return &Store{db: db, path: ":memory:", logger: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// UpsertModel records the creator this database belongs to.
func (s *Store) UpsertModel(modelID int64, username string) error {
	_, err := s.db.Exec(`
		INSERT INTO models (model_id, username, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(model_id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`,
		modelID, username, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to upsert model", err)
	}
	return nil
}

// postTable maps an api response type onto its bookkeeping table.
func postTable(apiType string) string {
	switch strings.ToLower(apiType) {
	case "message", "messages":
		return "messages"
	case "story", "stories", "highlight", "highlights":
		return "stories"
	default:
		return "posts"
	}
}

// UpsertPost writes a post, message, or story row depending on api type.
func (s *Store) UpsertPost(apiType string, rec PostRecord) error {
	posted := ""
	if !rec.PostedAt.IsZero() {
		posted = rec.PostedAt.UTC().Format(time.RFC3339)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	var err error
	switch table := postTable(apiType); table {
	case "messages":
		_, err = s.db.Exec(`
			INSERT INTO messages (post_id, model_id, text, price, paid, opened, created_at, posted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(post_id) DO UPDATE SET
				text = excluded.text, price = excluded.price, paid = excluded.paid,
				opened = excluded.opened, posted_at = excluded.posted_at`,
			rec.PostID, rec.ModelID, rec.Text, rec.Price, rec.Paid, rec.Opened, now, posted)
	case "stories":
		_, err = s.db.Exec(`
			INSERT INTO stories (post_id, model_id, text, price, created_at, posted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(post_id) DO UPDATE SET
				text = excluded.text, price = excluded.price, posted_at = excluded.posted_at`,
			rec.PostID, rec.ModelID, rec.Text, rec.Price, now, posted)
	default:
		_, err = s.db.Exec(`
			INSERT INTO posts (post_id, model_id, text, price, paid, archived, pinned, created_at, posted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(post_id) DO UPDATE SET
				text = excluded.text, price = excluded.price, paid = excluded.paid,
				archived = excluded.archived, pinned = excluded.pinned, posted_at = excluded.posted_at`,
			rec.PostID, rec.ModelID, rec.Text, rec.Price, rec.Paid, rec.Archived, rec.Pinned, now, posted)
	}
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to upsert post", err)
	}
	return nil
}

// UpsertMedia writes a media row, preserving an existing downloaded flag
// so rescans never mark files as missing.
func (s *Store) UpsertMedia(rec MediaRecord) error {
	posted := ""
	if !rec.PostedAt.IsZero() {
		posted = rec.PostedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO medias (media_id, post_id, model_id, api_type, media_type, link,
			directory, filename, size, hash, duration, preview, linked, downloaded,
			unlocked, created_at, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(media_id, post_id) DO UPDATE SET
			api_type = excluded.api_type, media_type = excluded.media_type,
			link = excluded.link, duration = excluded.duration,
			preview = excluded.preview, unlocked = excluded.unlocked,
			posted_at = excluded.posted_at,
			downloaded = MAX(medias.downloaded, excluded.downloaded)`,
		rec.MediaID, rec.PostID, rec.ModelID, rec.APIType, rec.MediaType, rec.Link,
		rec.Directory, rec.Filename, rec.Size, rec.Hash, rec.Duration, rec.Preview,
		rec.Linked, rec.Downloaded, rec.Unlocked,
		time.Now().UTC().Format(time.RFC3339), posted)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to upsert media", err)
	}
	return nil
}

// MarkDownloaded records a completed download with its final location.
func (s *Store) MarkDownloaded(mediaID, postID int64, directory, filename string, size int64, hash string) error {
	_, err := s.db.Exec(`
		UPDATE medias SET downloaded = 1, directory = ?, filename = ?, size = ?, hash = ?
		WHERE media_id = ? AND post_id = ?`,
		directory, filename, size, hash, mediaID, postID)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to mark media downloaded", err)
	}
	return nil
}

// DownloadedMediaIDs returns the set of media ids already on disk.
func (s *Store) DownloadedMediaIDs() (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT media_id FROM medias WHERE downloaded = 1`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to query downloaded media", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to scan media id", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// MediaRows reads back every media row joined with the price and text
// of its owning post, message, or story for the table view.
type MediaRow struct {
	MediaRecord
	Price float64
	Text  string
}

func (s *Store) MediaRows() ([]MediaRow, error) {
	rows, err := s.db.Query(`
		SELECT m.media_id, m.post_id, m.model_id, m.api_type, m.media_type, m.link,
			m.directory, m.filename, m.size, m.hash, m.duration, m.preview, m.linked,
			m.downloaded, m.unlocked, m.posted_at,
			COALESCE(p.price, msg.price, st.price, 0),
			COALESCE(p.text, msg.text, st.text, '')
		FROM medias m
		LEFT JOIN posts p ON p.post_id = m.post_id
		LEFT JOIN messages msg ON msg.post_id = m.post_id
		LEFT JOIN stories st ON st.post_id = m.post_id
		ORDER BY m.posted_at DESC`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to query media rows", err)
	}
	defer rows.Close()

	var out []MediaRow
	for rows.Next() {
		var r MediaRow
		var posted sql.NullString
		var dir, fn, hash, link sql.NullString
		var size sql.NullInt64
		if err := rows.Scan(&r.MediaID, &r.PostID, &r.ModelID, &r.APIType, &r.MediaType,
			&link, &dir, &fn, &size, &hash, &r.Duration, &r.Preview, &r.Linked,
			&r.Downloaded, &r.Unlocked, &posted, &r.Price, &r.Text); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to scan media row", err)
		}
		r.Link, r.Directory, r.Filename, r.Hash = link.String, dir.String, fn.String, hash.String
		r.Size = size.Int64
		if posted.Valid && posted.String != "" {
			if t, perr := time.Parse(time.RFC3339, posted.String); perr == nil {
				r.PostedAt = t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DownloadedFiles lists directory/filename pairs of completed downloads,
// used by the purge operation to locate files on disk.
func (s *Store) DownloadedFiles() ([][2]string, error) {
	rows, err := s.db.Query(`
		SELECT directory, filename FROM medias
		WHERE downloaded = 1 AND directory IS NOT NULL AND filename IS NOT NULL`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to query downloaded files", err)
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var dir, fn string
		if err := rows.Scan(&dir, &fn); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to scan file row", err)
		}
		out = append(out, [2]string{dir, fn})
	}
	return out, rows.Err()
}

// LastScan returns the recorded time of the last full scan of an area,
// zero when the area has never been scanned.
func (s *Store) LastScan(modelID int64, area models.Area) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRow(`SELECT last_scan FROM scan_state WHERE model_id = ? AND area = ?`,
		modelID, string(area)).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, errs.Wrap(errs.ErrorTypeStorage, "failed to query scan state", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	t, perr := time.Parse(time.RFC3339, raw.String)
	if perr != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// SetLastScan records when an area scan completed.
func (s *Store) SetLastScan(modelID int64, area models.Area, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_state (model_id, area, last_scan) VALUES (?, ?, ?)
		ON CONFLICT(model_id, area) DO UPDATE SET last_scan = excluded.last_scan`,
		modelID, string(area), at.UTC().Format(time.RFC3339))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to record scan state", err)
	}
	return nil
}

// ResetLastScan clears scan bookkeeping so the next run rescans fully.
func (s *Store) ResetLastScan(modelID int64) error {
	_, err := s.db.Exec(`DELETE FROM scan_state WHERE model_id = ?`, modelID)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to reset scan state", err)
	}
	return nil
}

// Stats summarizes the cache for display.
type Stats struct {
	Posts      int
	Messages   int
	Stories    int
	Media      int
	Downloaded int
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	row := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM stories),
			(SELECT COUNT(*) FROM medias),
			(SELECT COUNT(*) FROM medias WHERE downloaded = 1)`)
	if err := row.Scan(&st.Posts, &st.Messages, &st.Stories, &st.Media, &st.Downloaded); err != nil {
		return Stats{}, errs.Wrap(errs.ErrorTypeStorage, "failed to read stats", err)
	}
	return st, nil
}

func (s *Store) String() string {
	return fmt.Sprintf("Store(%s)", s.path)
}
