package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/decisionpatterns/arborist/predblock"
)

// Dataset is a CSV matrix parsed into the column-major shape predblock
// expects: numeric predictors first, then factor predictors, with the
// response column (if any) pulled out separately.
type Dataset struct {
	NRow int

	PredNames []string // display name (trailing '!' stripped), numeric predictors then factor predictors
	NumCols   [][]float64
	FacCols   [][]uint32
	FacCard   []int
	FacLevels [][]string // level name at each observed code, per factor predictor

	ResponseName string
	CtgWidth     int // 0 for a regression response
	Y            []float64
	YCtg         []uint32
	YLevels      []string
}

type csvCol struct {
	name     string
	isFactor bool
}

// readCSV reads a CSV whose header row names each column (a trailing '!'
// marking a factor predictor), splitting out the response column by name
// if response is non-empty. It returns the predictor columns in header
// order, every data row, and the response column's original header
// position (-1 if response was empty or not found).
func readCSV(path, response string) (cols []csvCol, rawRows [][]string, respCol int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, -1, fmt.Errorf("arborist: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, nil, -1, fmt.Errorf("arborist: read header: %w", err)
	}

	respCol = -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == response && response != "" {
			respCol = i
			continue
		}
		isFactor := strings.HasSuffix(h, "!")
		cols = append(cols, csvCol{name: strings.TrimSuffix(h, "!"), isFactor: isFactor})
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, -1, fmt.Errorf("arborist: read row %d: %w", len(rawRows)+2, err)
		}
		rawRows = append(rawRows, rec)
	}
	if len(rawRows) == 0 {
		return nil, nil, -1, fmt.Errorf("arborist: %s has no data rows", path)
	}
	return cols, rawRows, respCol, nil
}

// srcIndex maps a position within cols (which skips the response column)
// back to its original column position in the raw CSV record.
func srcIndex(headerPos, respCol int) int {
	if respCol >= 0 && headerPos >= respCol {
		return headerPos + 1
	}
	return headerPos
}

// loadDataset reads a CSV whose header row names each column, a trailing
// '!' marking a factor predictor. If response is non-empty, that column is
// split out as the target: parsed as float64 if every value parses, else
// treated as a classification label column assigned dense category codes
// in first-appearance order. Factor levels are encoded fresh, in
// first-appearance order — callers that later predict against a trained
// model must instead use loadPredictDataset, which encodes against the
// training-time level order.
func loadDataset(path, response string) (*Dataset, error) {
	cols, rawRows, respCol, err := readCSV(path, response)
	if err != nil {
		return nil, err
	}
	nRow := len(rawRows)

	ds := &Dataset{NRow: nRow, ResponseName: response}
	for i, c := range cols {
		if c.isFactor {
			continue
		}
		ds.PredNames = append(ds.PredNames, c.name)
		colVals := make([]float64, nRow)
		src := srcIndex(i, respCol)
		for row, rec := range rawRows {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[src]), 64)
			if err != nil {
				return nil, fmt.Errorf("arborist: column %q row %d: %w", c.name, row+2, err)
			}
			colVals[row] = v
		}
		ds.NumCols = append(ds.NumCols, colVals)
	}
	for i, c := range cols {
		if !c.isFactor {
			continue
		}
		ds.PredNames = append(ds.PredNames, c.name)
		src := srcIndex(i, respCol)
		codes, levels := encodeLevels(rawRows, src)
		ds.FacCols = append(ds.FacCols, codes)
		ds.FacCard = append(ds.FacCard, len(levels))
		ds.FacLevels = append(ds.FacLevels, levels)
	}

	if respCol >= 0 {
		if err := ds.loadResponse(rawRows, respCol); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// loadPredictDataset reads a CSV the same way as loadDataset, but encodes
// factor columns against pf's training-time level order instead of fresh
// first-appearance codes, so factor codes line up with the splits baked
// into the trained forest. It returns the dataset plus the list of factor
// predictors (global index) that saw a level never observed at train time.
func loadPredictDataset(path, response string, pf predblock.PreFormat) (*Dataset, []int, error) {
	cols, rawRows, respCol, err := readCSV(path, response)
	if err != nil {
		return nil, nil, err
	}
	nRow := len(rawRows)

	ds := &Dataset{NRow: nRow, ResponseName: response}
	for i, c := range cols {
		if c.isFactor {
			continue
		}
		ds.PredNames = append(ds.PredNames, c.name)
		colVals := make([]float64, nRow)
		src := srcIndex(i, respCol)
		for row, rec := range rawRows {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[src]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("arborist: column %q row %d: %w", c.name, row+2, err)
			}
			colVals[row] = v
		}
		ds.NumCols = append(ds.NumCols, colVals)
	}

	var drifted []int
	facGlobal := pf.BlockNum
	for i, c := range cols {
		if !c.isFactor {
			continue
		}
		ds.PredNames = append(ds.PredNames, c.name)
		src := srcIndex(i, respCol)
		trainLevels := pf.Signature.Level[facGlobal]
		codes, card, sawNovel := encodeLevelsAgainst(rawRows, src, trainLevels)
		if sawNovel {
			drifted = append(drifted, facGlobal)
		}
		ds.FacCols = append(ds.FacCols, codes)
		ds.FacCard = append(ds.FacCard, card)
		ds.FacLevels = append(ds.FacLevels, trainLevels)
		facGlobal++
	}

	if respCol >= 0 {
		if err := ds.loadResponse(rawRows, respCol); err != nil {
			return nil, nil, err
		}
	}

	return ds, drifted, nil
}

func (ds *Dataset) loadResponse(rows [][]string, col int) error {
	y := make([]float64, len(rows))
	allNumeric := true
	for row, rec := range rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			allNumeric = false
			break
		}
		y[row] = v
	}
	if allNumeric {
		ds.Y = y
		return nil
	}
	codes, levels := encodeLevels(rows, col)
	ds.YCtg = codes
	ds.YLevels = levels
	ds.CtgWidth = len(levels)
	return nil
}

// encodeLevelsAgainst encodes column col using a fixed, pre-existing level
// order (as persisted in a PreFormat's Signature). A value not present in
// trainLevels gets predblock.ProxyLevel(len(trainLevels)) and sawNovel is
// reported true.
func encodeLevelsAgainst(rows [][]string, col int, trainLevels []string) (codes []uint32, card int, sawNovel bool) {
	idx := make(map[string]uint32, len(trainLevels))
	for i, lv := range trainLevels {
		idx[lv] = uint32(i)
	}
	proxy := predblock.ProxyLevel(len(trainLevels))
	codes = make([]uint32, len(rows))
	card = len(trainLevels)
	for row, rec := range rows {
		v := strings.TrimSpace(rec[col])
		if c, ok := idx[v]; ok {
			codes[row] = c
			continue
		}
		codes[row] = proxy
		sawNovel = true
	}
	if sawNovel && int(proxy) >= card {
		card = int(proxy) + 1
	}
	return codes, card, sawNovel
}

// encodeLevels assigns dense category codes to the raw strings in column
// col, in first-appearance order.
func encodeLevels(rows [][]string, col int) ([]uint32, []string) {
	seen := make(map[string]uint32)
	var levels []string
	codes := make([]uint32, len(rows))
	for row, rec := range rows {
		v := strings.TrimSpace(rec[col])
		code, ok := seen[v]
		if !ok {
			code = uint32(len(levels))
			seen[v] = code
			levels = append(levels, v)
		}
		codes[row] = code
	}
	return codes, levels
}
