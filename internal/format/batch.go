package format

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/tracksync/internal/track"
)

// File is one document submitted for import.
type File struct {
	Name    string
	Content []byte
}

// Sink receives each successfully parsed track.
type Sink interface {
	Save(ctx context.Context, t track.Track) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, t track.Track) error

func (f SinkFunc) Save(ctx context.Context, t track.Track) error {
	return f(ctx, t)
}

// FileResult is the outcome for one file. Tracks holds what was handed to
// the sink; Err is set when the file failed to parse or a track could not
// be stored.
type FileResult struct {
	File   string
	Tracks []track.Track
	Err    error
}

// BatchResult aggregates an import.
type BatchResult struct {
	Files    []FileResult
	Imported int
	Failed   int
}

// ImportFiles parses files independently and hands the tracks to sink.
// A failing file never aborts the batch. Cancelling ctx stops before the
// next file; the remaining files are reported with the context error.
func (p *Parser) ImportFiles(ctx context.Context, files []File, sink Sink) BatchResult {
	var res BatchResult
	for _, f := range files {
		fr := FileResult{File: f.Name}
		if err := ctx.Err(); err != nil {
			fr.Err = err
		} else {
			fr.Tracks, fr.Err = p.importOne(ctx, f, sink)
		}
		if fr.Err != nil {
			res.Failed++
		}
		res.Imported += len(fr.Tracks)
		res.Files = append(res.Files, fr)
	}
	return res
}

func (p *Parser) importOne(ctx context.Context, f File, sink Sink) ([]track.Track, error) {
	tracks, err := p.Parse(f.Name, f.Content)
	if err != nil {
		return nil, err
	}
	saved := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if err := sink.Save(ctx, t); err != nil {
			return saved, fmt.Errorf("save %s: %w", t.ID, err)
		}
		saved = append(saved, t)
	}
	return saved, nil
}

// ReadFiles loads paths from disk. Read failures abort since there is
// nothing to report per file without the content.
func ReadFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, File{Name: filepath.Base(path), Content: b})
	}
	return files, nil
}
