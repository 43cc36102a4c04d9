package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	InvalidRecordErr = errors.New("invalid record")
	DuplicateErr     = errors.New("duplicate entity")
)

// maxConcurrentFiles limits the number of population files read at the same time.
const maxConcurrentFiles = 8

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc readCloser) Close() error {
	var err error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if e := rc.closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Open opens the population file at the given path.
// Files ending in .gz or .lz4 are decompressed while reading.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file '%s': %w", path, err)
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("could not read gzip file '%s': %w", path, err)
		}
		return readCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
	case strings.HasSuffix(path, ".lz4"):
		return readCloser{Reader: lz4.NewReader(f), closers: []io.Closer{f}}, nil
	}
	return f, nil
}

// Read parses the population out of csv records of the form id,name,f1,...,fn.
// A first row without an integer id is treated as a header.
// All entities must have the same number of features and unique ids.
func Read(r io.Reader) ([]model.Entity, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	population := make([]model.Entity, 0)
	ids := make(map[int]bool)
	dim := -1
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read record: %w", err)
		}
		line++
		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				log.Debug().Strs("header", record).Msg("skipping header")
				continue
			}
			return nil, fmt.Errorf("invalid id '%s' at line %d: %w", record[0], line, InvalidRecordErr)
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("expected at least 3 fields at line %d but found %d: %w", line, len(record), InvalidRecordErr)
		}
		features, err := math.ParseVector(record[2:]...)
		if err != nil {
			return nil, fmt.Errorf("invalid features at line %d: %s: %w", line, err.Error(), InvalidRecordErr)
		}
		if dim < 0 {
			dim = len(features)
		} else if dim != len(features) {
			return nil, fmt.Errorf("expected %d features at line %d but found %d: %w", dim, line, len(features), math.LengthMismatchErr)
		}
		if ids[id] {
			return nil, fmt.Errorf("entity %d at line %d: %w", id, line, DuplicateErr)
		}
		ids[id] = true
		population = append(population, model.Entity{
			ID:       id,
			Name:     strings.TrimSpace(record[1]),
			Features: features,
		})
	}
	return population, nil
}

// Load reads the population out of the file at the given path.
func Load(path string) ([]model.Entity, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	population, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("could not load population from '%s': %w", path, err)
	}
	log.Info().Str("path", path).Int("population", len(population)).Msg("loaded population")
	return population, nil
}

// LoadAll reads the files concurrently and concatenates the populations in the order of the paths.
func LoadAll(ctx context.Context, paths ...string) ([]model.Entity, error) {
	parts := make([][]model.Entity, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			population, err := Load(path)
			if err != nil {
				return err
			}
			parts[i] = population
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	population := make([]model.Entity, 0)
	ids := make(map[int]string)
	for i, part := range parts {
		for _, e := range part {
			if p, ok := ids[e.ID]; ok {
				return nil, fmt.Errorf("entity %d in '%s' and '%s': %w", e.ID, p, paths[i], DuplicateErr)
			}
			ids[e.ID] = paths[i]
			population = append(population, e)
		}
	}
	if len(population) > 0 {
		dim := population[0].Dim()
		for _, e := range population {
			if e.Dim() != dim {
				return nil, fmt.Errorf("entity %d has %d features instead of %d: %w", e.ID, e.Dim(), dim, math.LengthMismatchErr)
			}
		}
	}
	return population, nil
}
