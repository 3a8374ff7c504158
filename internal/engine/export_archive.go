package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/taskdeck/interchange/internal/task"
)

// renderArchive stages one frontmatter document per record plus board
// descriptors in a scratch directory and hands the tree to the archiver.
// Archive creation itself is the injected capability, not engine logic.
func (c Converter) renderArchive(records []task.Record) ([]byte, []string, error) {
	dir, err := os.MkdirTemp("", "interchange-export-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	tasksDir := filepath.Join(dir, archiveTasksDir)
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return nil, nil, err
	}

	boards := map[string]bool{}
	for _, rec := range records {
		doc, err := renderFrontmatterDoc(rec)
		if err != nil {
			return nil, nil, err
		}
		name := filepath.Join(tasksDir, rec.ID.String()+".md")
		if err := os.WriteFile(name, doc, 0o644); err != nil {
			return nil, nil, fmt.Errorf("stage %s: %w", rec.ID, err)
		}
		for boardID := range rec.Positions {
			boards[boardID] = true
		}
	}

	if len(boards) > 0 {
		boardsDir := filepath.Join(dir, archiveBoardsDir)
		if err := os.MkdirAll(boardsDir, 0o755); err != nil {
			return nil, nil, err
		}
		ids := make([]string, 0, len(boards))
		for id := range boards {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			doc := fmt.Sprintf("---\nid: %s\nname: %s\n---\n", id, id)
			if err := os.WriteFile(filepath.Join(boardsDir, id+".md"), []byte(doc), 0o644); err != nil {
				return nil, nil, fmt.Errorf("stage board %s: %w", id, err)
			}
		}
	}

	data, err := c.archiver().Compress(dir)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
