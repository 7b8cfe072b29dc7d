package db

import (
	"context"
	"io/fs"
	"path/filepath"

	errs "subscraper/pkg/errors"
	"subscraper/pkg/logger"
)

// MergeReport summarizes one merge run.
type MergeReport struct {
	SourcesFound int
	SourcesRead  int
	MediaMerged  int
	PostsMerged  int
	Skipped      []string
}

// FindDatabases recursively locates user_data.db files under root.
func FindDatabases(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal
			return nil
		}
		if !d.IsDir() && d.Name() == dbFileName {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to walk source root", err)
	}
	return out, nil
}

// Merge combines every user_data.db found under sourceRoot into the
// database at destPath, deduping by primary keys. Existing rows in the
// destination win over incoming ones, except the downloaded flag which
// is sticky once set by any source.
func Merge(ctx context.Context, sourceRoot, destPath string, log logger.Logger) (*MergeReport, error) {
	sources, err := FindDatabases(sourceRoot)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, "no user_data.db files found under source folder")
	}

	dest, err := Open(destPath, log)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	report := &MergeReport{SourcesFound: len(sources)}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if sameFile(src, destPath) {
			continue
		}
		if err := dest.mergeFrom(src, report); err != nil {
			log.WarnWithFields("Skipping unreadable database", map[string]interface{}{
				"path":  src,
				"error": err.Error(),
			})
			report.Skipped = append(report.Skipped, src)
			continue
		}
		report.SourcesRead++
	}

	log.InfoWithFields("Database merge complete", map[string]interface{}{
		"sources": report.SourcesRead,
		"media":   report.MediaMerged,
		"posts":   report.PostsMerged,
	})
	return report, nil
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

// mergeFrom attaches a source database and copies its rows over.
func (s *Store) mergeFrom(srcPath string, report *MergeReport) error {
	if _, err := s.db.Exec(`ATTACH DATABASE ? AS src`, srcPath); err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to attach source database", err)
	}
	defer s.db.Exec(`DETACH DATABASE src`)

	tx, err := s.db.Begin()
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to begin merge transaction", err)
	}
	defer tx.Rollback()

	copies := []struct {
		table string
		count *int
	}{
		{"models", nil},
		{"posts", &report.PostsMerged},
		{"messages", &report.PostsMerged},
		{"stories", &report.PostsMerged},
		{"medias", &report.MediaMerged},
		{"scan_state", nil},
	}
	for _, c := range copies {
		res, err := tx.Exec(`INSERT OR IGNORE INTO ` + c.table + ` SELECT * FROM src.` + c.table)
		if err != nil {
			// Older cache files may predate some tables
			continue
		}
		if c.count != nil {
			if n, err := res.RowsAffected(); err == nil {
				*c.count += int(n)
			}
		}
	}

	// Downloaded is sticky: a file present in any source stays recorded
	if _, err := tx.Exec(`
		UPDATE medias SET downloaded = 1,
			directory = COALESCE((SELECT sm.directory FROM src.medias sm
				WHERE sm.media_id = medias.media_id AND sm.post_id = medias.post_id AND sm.downloaded = 1), directory),
			filename = COALESCE((SELECT sm.filename FROM src.medias sm
				WHERE sm.media_id = medias.media_id AND sm.post_id = medias.post_id AND sm.downloaded = 1), filename)
		WHERE EXISTS (SELECT 1 FROM src.medias sm
			WHERE sm.media_id = medias.media_id AND sm.post_id = medias.post_id AND sm.downloaded = 1)`); err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to propagate downloaded flags", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, "failed to commit merge", err)
	}
	return nil
}
