package engine

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdeck/interchange/internal/task"
)

// Archive layout: one frontmatter document per record under tasks/, board
// descriptors under boards/. Record positions live in each document's
// frontmatter; board files only describe the boards themselves.
const (
	archiveTasksDir  = "tasks"
	archiveBoardsDir = "boards"
)

// parseArchive extracts a native archive into a scratch directory and
// parses every task document in it. The archiver is an injected
// capability, so nothing here depends on OS archive tooling.
func (c Converter) parseArchive(source []byte, opts ImportOptions) ([]task.Record, []RowError, error) {
	dir, err := os.MkdirTemp("", "interchange-import-*")
	if err != nil {
		return nil, nil, structural("create scratch directory", err)
	}
	defer os.RemoveAll(dir)

	if err := c.archiver().Extract(source, dir); err != nil {
		return nil, nil, structural("extract archive", err)
	}

	var docs []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		// Board descriptors carry no records.
		if strings.HasPrefix(filepath.ToSlash(rel), archiveBoardsDir+"/") {
			return nil
		}
		if strings.HasSuffix(path, ".md") {
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, structural("walk archive", err)
	}
	sort.Strings(docs)

	var (
		records []task.Record
		errs    []RowError
	)
	for _, path := range docs {
		if capReached(opts, len(records)) {
			break
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, structural("read "+filepath.Base(path), err)
		}

		rec, re, perr := parseFrontmatterDoc(string(data))
		if perr != nil {
			// One broken document is a per-record failure for the
			// archive as a whole; the container is still sound.
			re = &RowError{Field: filepath.Base(path), Message: perr.Error()}
		}
		if re != nil {
			if re.Field == "" || re.Field == "title" {
				re.Field = filepath.Base(path)
			}
			if aerr := abortOn(opts, &errs, *re); aerr != nil {
				return nil, nil, aerr
			}
			continue
		}

		// The filename is the record's identity in the archive.
		base := strings.TrimSuffix(filepath.Base(path), ".md")
		if id, err := uuid.Parse(base); err == nil {
			rec.ID = id
		}
		records = append(records, rec)
	}

	return records, errs, nil
}
