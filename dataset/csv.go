// Package dataset turns trajectory files into training
// samples for recurrent networks.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/kognitive/BallPrediction/datafilter"
	"github.com/unixpickle/essentials"
)

// ReadCSV parses a trajectory with one row per time step.
//
// A first row that is not numeric is treated as a header
// and skipped.
// Every row must have the same number of columns.
func ReadCSV(r io.Reader) (datafilter.Trajectory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	var res datafilter.Trajectory
	for i, record := range records {
		row, err := parseRow(record)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("read CSV: line %d: %w", i+1, err)
		}
		if len(res) > 0 && len(row) != res.Cols() {
			return nil, fmt.Errorf("read CSV: line %d: expected %d columns, got %d", i+1,
				res.Cols(), len(row))
		}
		res = append(res, row)
	}
	return res, nil
}

// WriteCSV writes a trajectory in the format read by
// ReadCSV.
func WriteCSV(w io.Writer, t datafilter.Trajectory) error {
	writer := csv.NewWriter(w)
	for _, row := range t {
		record := make([]string, len(row))
		for i, x := range row {
			record[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSVFile reads a trajectory from a file.
func ReadCSVFile(path string) (datafilter.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("read "+path, err)
	}
	defer f.Close()
	res, err := ReadCSV(f)
	if err != nil {
		return nil, essentials.AddCtx("read "+path, err)
	}
	return res, nil
}

// LoadDir reads every *.csv file in dir, in lexical order.
//
// Files are parsed by a pool of workers.
// If workers is 0, one worker per logical core is used.
func LoadDir(ctx context.Context, dir string, workers int) ([]datafilter.Trajectory, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, essentials.AddCtx("load dir", err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("load dir: no CSV files in %s", dir)
	}

	if workers == 0 {
		workers = cpuid.CPU.LogicalCores
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	idxChan := make(chan int, len(paths))
	for i := range paths {
		idxChan <- i
	}
	close(idxChan)

	res := make([]datafilter.Trajectory, len(paths))
	wg := sync.WaitGroup{}
	errChan := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				if err := ctx.Err(); err != nil {
					errChan <- err
					return
				}
				t, err := ReadCSVFile(paths[i])
				if err != nil {
					errChan <- essentials.AddCtx("load dir", err)
					return
				}
				res[i] = t
			}
		}()
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return res, nil
}

func parseRow(record []string) ([]float64, error) {
	if len(record) == 0 {
		return nil, errors.New("empty row")
	}
	row := make([]float64, len(record))
	for i, field := range record {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		row[i] = x
	}
	return row, nil
}
