package extractor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
)

// Result is the outcome of extracting a whole source tree.
type Result struct {
	Entities     []SourceEntity
	ParseErrors  []*ParseError
	FilesScanned int
}

// Extractor turns the files of a Source into SourceEntities.
type Extractor struct {
	parser *Parser
	logger *slog.Logger
}

// New creates an Extractor. A nil logger means slog.Default().
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		parser: NewParser(),
		logger: logger,
	}
}

// Close releases the parser.
func (e *Extractor) Close() {
	e.parser.Close()
}

// Extract parses every file of src. Files that cannot be read or parsed are
// skipped and reported in Result.ParseErrors; only a failure to list the
// tree or a cancelled context aborts extraction.
func (e *Extractor) Extract(ctx context.Context, src Source) (*Result, error) {
	files, err := src.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	e.logger.Info("Found source files", "root", src.Root(), "count", len(files))

	result := &Result{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := src.ReadFile(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.skip(result, &ParseError{Path: path, Msg: err.Error(), Err: err})
			continue
		}
		result.FilesScanned++

		entities, err := e.parser.Parse(ctx, path, content)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				perr = &ParseError{Path: path, Msg: err.Error(), Err: err}
			}
			e.skip(result, perr)
			continue
		}

		e.logger.Debug("Parsed file", "path", path, "entities", len(entities))
		result.Entities = append(result.Entities, entities...)
	}

	return result, nil
}

func (e *Extractor) skip(result *Result, perr *ParseError) {
	e.logger.Warn("Skipping file", "path", perr.Path, "error", perr)
	result.ParseErrors = append(result.ParseErrors, perr)
}

// ReadAuxiliary reads a well-known file (such as main.py) at the root of src.
// A missing file is not an error: it reports ok == false.
func ReadAuxiliary(ctx context.Context, src Source, name string) (content string, ok bool, err error) {
	data, err := src.ReadFile(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), true, nil
}
