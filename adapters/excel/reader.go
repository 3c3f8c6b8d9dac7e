package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"tipnet/adapters/stats/temporal"
	"tipnet/internal"
	apperrors "tipnet/internal/errors"
	"tipnet/ports"
)

// DataReader loads a time-ordered observation matrix from an Excel or CSV
// file. The first row holds the variable names; every later row is one time
// step.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	src      io.Reader
	cfg      ReaderConfig
	logger   *internal.Logger
}

var _ ports.ObservationReader = (*DataReader)(nil)

// NewDataReader creates a reader for filePath; the type follows the extension.
func NewDataReader(filePath string, cfg ReaderConfig) *DataReader {
	fileType := "xlsx"
	if strings.EqualFold(filepath.Ext(filePath), ".csv") {
		fileType = "csv"
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		cfg:      cfg,
		logger:   internal.DefaultLogger.WithComponent("DataReader"),
	}
}

// NewCSVReader reads CSV content from r, e.g. an uploaded file. name is used
// as the observation source.
func NewCSVReader(name string, r io.Reader, cfg ReaderConfig) *DataReader {
	return &DataReader{
		filePath: name,
		fileType: "csv",
		src:      r,
		cfg:      cfg,
		logger:   internal.DefaultLogger.WithComponent("DataReader"),
	}
}

// ReadObservations implements ports.ObservationReader.
func (r *DataReader) ReadObservations(ctx context.Context) (*ports.Observations, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, apperrors.InvalidInputf("%s must have a header row and at least one data row", strings.ToUpper(r.fileType))
	}
	return r.processRows(rows)
}

func (r *DataReader) readExcel() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidInput(err.Error()), "failed to open Excel file")
	}
	defer f.Close()

	sheet := r.cfg.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.InvalidInput(err.Error()), "failed to read %s", sheet)
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *DataReader) readCSV() ([][]string, error) {
	src := r.src
	if src == nil {
		file, err := os.Open(r.filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperrors.InvalidInputf("CSV file not found: %s", r.filePath)
			}
			return nil, apperrors.Wrap(err, "failed to open CSV file")
		}
		defer file.Close()
		src = file
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidInput(err.Error()), "failed to read CSV file")
	}
	return rows, nil
}

// processRows selects the configured columns and parses every cell as a float.
// With a time column the rows are put in time order, and resampled when an
// interval is configured.
func (r *DataReader) processRows(rows [][]string) (*ports.Observations, error) {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	timeCol := -1
	if r.cfg.TimeColumn != "" {
		timeCol = slices.Index(headers, strings.TrimSpace(r.cfg.TimeColumn))
		if timeCol < 0 {
			return nil, apperrors.InvalidInputf("time column %q not found", r.cfg.TimeColumn)
		}
	} else if r.cfg.Interval != "" {
		return nil, apperrors.InvalidInput("resampling needs a time column")
	}

	names, index, err := r.selectColumns(headers, timeCol)
	if err != nil {
		return nil, err
	}

	data := make([]float64, 0, len(names)*(len(rows)-1))
	var times []time.Time
	kept, dropped := 0, 0
	record := make([]float64, len(names))
rows:
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		var stamp time.Time
		if timeCol >= 0 {
			cell := ""
			if timeCol < len(row) {
				cell = row[timeCol]
			}
			if stamp, err = temporal.ParseTime(cell); err != nil {
				if r.cfg.DropIncomplete {
					dropped++
					continue
				}
				return nil, apperrors.InvalidInputf("row %d: %v", i+2, err)
			}
		}
		for k, col := range index {
			cell := ""
			if col < len(row) {
				cell = strings.TrimSpace(row[col])
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				if r.cfg.DropIncomplete {
					dropped++
					continue rows
				}
				return nil, apperrors.InvalidInputf("row %d, column %q: %q is not a finite number", i+2, names[k], cell)
			}
			record[k] = v
		}
		data = append(data, record...)
		if timeCol >= 0 {
			times = append(times, stamp)
		}
		kept++
	}
	if kept == 0 {
		return nil, apperrors.InvalidInput("no numeric data rows")
	}
	if dropped > 0 {
		r.logger.Warn("dropped %d incomplete rows", dropped)
	}

	matrix := mat.NewDense(kept, len(names), data)
	if timeCol >= 0 {
		if matrix, err = r.orderByTime(times, matrix); err != nil {
			return nil, err
		}
	}
	samples, _ := matrix.Dims()
	r.logger.Info("%s file processed (%d variables, %d samples)", strings.ToUpper(r.fileType), len(names), samples)

	return &ports.Observations{
		Source:    filepath.Base(r.filePath),
		Variables: names,
		Data:      matrix,
	}, nil
}

func (r *DataReader) orderByTime(times []time.Time, data *mat.Dense) (*mat.Dense, error) {
	if r.cfg.Interval == "" {
		sorted, _, err := temporal.SortByTime(times, data)
		return sorted, err
	}
	cfg, err := r.cfg.resampleConfig()
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	resampled, grid, err := temporal.Resample(times, data, cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidInput(err.Error()), "failed to resample")
	}
	r.logger.Debug("resampled %d rows onto %d %s periods", len(times), len(grid), cfg.Interval)
	return resampled, nil
}

func (r *DataReader) selectColumns(headers []string, timeCol int) ([]string, []int, error) {
	if len(r.cfg.Columns) == 0 {
		names := make([]string, 0, len(headers))
		index := make([]int, 0, len(headers))
		for i, h := range headers {
			if i == timeCol {
				continue
			}
			if h == "" {
				h = fmt.Sprintf("X%d", i)
			}
			names = append(names, h)
			index = append(index, i)
		}
		if len(names) == 0 {
			return nil, nil, apperrors.InvalidInput("no variable columns")
		}
		return names, index, nil
	}

	index := make([]int, len(r.cfg.Columns))
	for k, name := range r.cfg.Columns {
		col := slices.Index(headers, strings.TrimSpace(name))
		if col < 0 || col == timeCol {
			return nil, nil, apperrors.InvalidInputf("column %q not found", name)
		}
		index[k] = col
	}
	return slices.Clone(r.cfg.Columns), index, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
