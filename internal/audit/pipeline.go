// Package audit runs the strength analyzer over password datasets and
// reports how many entries fall below a required level.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/strength"
)

// ErrNoPasswordColumn is returned for CSV input without a password column
var ErrNoPasswordColumn = errors.New("no password column in CSV header")

type row struct {
	index  int64
	record Record
}

type analyzedRow struct {
	index      int64
	hash       string
	result     strength.Result
	crossCheck *int
	masked     string
}

// Pipeline audits password datasets
type Pipeline struct {
	config     Config
	belowLevel strength.Level
	logger     *zap.Logger
	stats      *ProcessingStats
	mu         sync.RWMutex
}

// NewPipeline creates an audit pipeline
func NewPipeline(config Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.MaxLength <= 0 {
		config.MaxLength = defaults.MaxLength
	}
	if config.BelowLevel == "" {
		config.BelowLevel = defaults.BelowLevel
	}

	level, ok := strength.ParseLevel(config.BelowLevel)
	if !ok {
		return nil, fmt.Errorf("invalid below_level %q", config.BelowLevel)
	}

	return &Pipeline{
		config:     config,
		belowLevel: level,
		logger:     logger,
		stats:      &ProcessingStats{StartTime: time.Now()},
	}, nil
}

// ProcessFile audits a dataset file (CSV, Parquet, or JSON)
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*Report, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	format := DetectFileFormat(filePath)
	p.logger.Info("Starting audit",
		zap.String("file", filePath),
		zap.String("format", string(format)),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.WorkerCount))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", format, err)
	}
	defer file.Close()

	var next func() ([]row, error)
	switch format {
	case FormatCSV:
		next, err = p.csvBatches(file)
	case FormatJSON:
		next, err = p.jsonBatches(file)
	case FormatParquet:
		reader := parquet.NewReader(file)
		defer reader.Close()
		next = p.parquetBatches(reader)
	default:
		err = fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	report, err := p.run(ctx, next)
	if report != nil {
		report.Source = filePath
	}
	return report, err
}

// ProcessReader audits CSV or JSON input from r
func (p *Pipeline) ProcessReader(ctx context.Context, r io.Reader, format FileFormat) (*Report, error) {
	var (
		next func() ([]row, error)
		err  error
	)
	switch format {
	case FormatCSV:
		next, err = p.csvBatches(r)
	case FormatJSON:
		next, err = p.jsonBatches(r)
	default:
		return nil, fmt.Errorf("format %s needs a seekable file", format)
	}
	if err != nil {
		return nil, err
	}
	return p.run(ctx, next)
}

func (p *Pipeline) csvBatches(r io.Reader) (func() ([]row, error), error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	passwordCol, userCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "password":
			passwordCol = i
		case "user", "username":
			userCol = i
		}
	}
	if passwordCol < 0 {
		return nil, ErrNoPasswordColumn
	}

	p.logger.Debug("CSV header detected", zap.Strings("columns", header))

	var index int64
	return func() ([]row, error) {
		var batch []row
		for len(batch) < p.config.BatchSize {
			fields, err := reader.Read()
			if err == io.EOF {
				break
			}
			index++
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Int64("row", index), zap.Error(err))
				p.countInvalid()
				continue
			}
			if passwordCol >= len(fields) {
				p.countInvalid()
				continue
			}

			rec := Record{Password: fields[passwordCol]}
			if userCol >= 0 && userCol < len(fields) {
				rec.User = strings.TrimSpace(fields[userCol])
			}
			batch = append(batch, row{index: index, record: rec})
		}
		return batch, nil
	}, nil
}

// jsonBatches accepts either one array of strings or objects, or a stream
// of objects (one per line)
func (p *Pipeline) jsonBatches(r io.Reader) (func() ([]row, error), error) {
	decoder := json.NewDecoder(r)

	var (
		index   int64
		inArray bool
		pending *json.RawMessage
	)

	first, err := decoder.Token()
	if err == io.EOF {
		return func() ([]row, error) { return nil, nil }, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON input: %w", err)
	}
	switch tok := first.(type) {
	case json.Delim:
		switch tok {
		case '[':
			inArray = true
		case '{':
			// Token consumed the brace of the first object; decode the rest
			// of it by hand and continue as a stream.
			obj, err := decodeObjectBody(decoder)
			if err != nil {
				return nil, err
			}
			pending = &obj
		default:
			return nil, fmt.Errorf("unexpected JSON delimiter %q", tok)
		}
	case string:
		raw, _ := json.Marshal(tok)
		msg := json.RawMessage(raw)
		pending = &msg
	default:
		return nil, fmt.Errorf("unexpected JSON value %v", tok)
	}

	return func() ([]row, error) {
		var batch []row
		for len(batch) < p.config.BatchSize {
			var raw json.RawMessage
			if pending != nil {
				raw, pending = *pending, nil
			} else {
				if inArray && !decoder.More() {
					break
				}
				if err := decoder.Decode(&raw); err != nil {
					if err == io.EOF {
						break
					}
					return batch, fmt.Errorf("failed to decode JSON record: %w", err)
				}
			}
			index++

			rec, err := decodeRecord(raw)
			if err != nil {
				p.logger.Warn("Skipping JSON record", zap.Int64("row", index), zap.Error(err))
				p.countInvalid()
				continue
			}
			batch = append(batch, row{index: index, record: rec})
		}
		return batch, nil
	}, nil
}

func decodeObjectBody(decoder *json.Decoder) (json.RawMessage, error) {
	obj := make(map[string]json.RawMessage)
	for decoder.More() {
		keyTok, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected JSON key %v", keyTok)
		}
		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read JSON value: %w", err)
		}
		obj[key] = value
	}
	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("failed to close JSON object: %w", err)
	}
	return json.Marshal(obj)
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Record{Password: s}, nil
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (p *Pipeline) parquetBatches(reader *parquet.Reader) func() ([]row, error) {
	var index int64
	return func() ([]row, error) {
		var batch []row
		for len(batch) < p.config.BatchSize {
			var rec Record
			err := reader.Read(&rec)
			if err == io.EOF {
				break
			}
			index++
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Int64("row", index), zap.Error(err))
				p.countInvalid()
				continue
			}
			batch = append(batch, row{index: index, record: rec})
		}
		return batch, nil
	}
}

func (p *Pipeline) run(ctx context.Context, next func() ([]row, error)) (*Report, error) {
	p.resetStats()
	start := time.Now()

	report := &Report{
		LevelCounts: make(map[strength.Level]int64),
		BelowLevel:  p.belowLevel,
		Findings:    []Finding{},
	}
	seen := make(map[string]int)
	var scoreSum, entropySum float64
	var findingHashes []string

	for {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		batch, err := next()
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			return report, fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		p.mu.Lock()
		p.stats.CurrentBatch++
		p.stats.RecordsRead += int64(len(batch))
		p.mu.Unlock()

		for _, res := range p.processBatch(ctx, batch, report) {
			report.Analyzed++
			report.LevelCounts[res.result.Level]++
			scoreSum += float64(res.result.Score)
			entropySum += res.result.Entropy

			seen[res.hash]++
			if seen[res.hash] > 1 {
				report.Duplicates++
			}

			if res.result.Level.Rank() < p.belowLevel.Rank() {
				report.FindingsTotal++
				if p.config.MaxFindings <= 0 || len(report.Findings) < p.config.MaxFindings {
					report.Findings = append(report.Findings, Finding{
						Row:        res.index,
						Masked:     res.masked,
						Score:      res.result.Score,
						Level:      res.result.Level,
						Feedback:   res.result.Feedback,
						CrossCheck: res.crossCheck,
					})
					findingHashes = append(findingHashes, res.hash)
				}
			}
		}

		report.TotalRecords += int64(len(batch))
		if p.config.ProgressReport > 0 && report.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(report)
		}
	}

	for i := range report.Findings {
		report.Findings[i].ReusedElsewhere = seen[findingHashes[i]] > 1
	}
	sort.Slice(report.Findings, func(i, j int) bool { return report.Findings[i].Row < report.Findings[j].Row })

	if report.Analyzed > 0 {
		report.MeanScore = scoreSum / float64(report.Analyzed)
		report.MeanEntropy = entropySum / float64(report.Analyzed)
	}
	p.mu.RLock()
	report.Skipped += p.stats.RecordsInvalid
	report.TotalRecords += p.stats.RecordsInvalid
	p.mu.RUnlock()
	report.Duration = time.Since(start)

	p.logger.Info("Audit completed",
		zap.Int64("total_records", report.TotalRecords),
		zap.Int64("analyzed", report.Analyzed),
		zap.Int64("skipped", report.Skipped),
		zap.Int64("duplicates", report.Duplicates),
		zap.Int64("findings", report.FindingsTotal),
		zap.Float64("mean_score", report.MeanScore),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// processBatch analyses one batch with a pool of workers
func (p *Pipeline) processBatch(ctx context.Context, batch []row, report *Report) []analyzedRow {
	jobs := make(chan row)
	results := make([]analyzedRow, 0, len(batch))
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := min(p.config.WorkerCount, len(batch))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				res, ok := p.analyze(r)
				mu.Lock()
				if ok {
					results = append(results, res)
				} else {
					report.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

	func() {
		defer close(jobs)
		for _, r := range batch {
			select {
			case <-ctx.Done():
				return
			case jobs <- r:
			}
		}
	}()
	wg.Wait()

	return results
}

func (p *Pipeline) analyze(r row) (analyzedRow, bool) {
	pw := r.record.Password
	if pw == "" || utf8.RuneCountInString(pw) > p.config.MaxLength {
		p.logger.Debug("Skipping record", zap.Int64("row", r.index), zap.Int("length", len(pw)))
		return analyzedRow{}, false
	}

	res := analyzedRow{
		index:  r.index,
		hash:   computeHash(pw),
		result: strength.Analyze(pw),
		masked: Mask(pw),
	}

	if p.config.CrossCheck {
		var inputs []string
		if r.record.User != "" {
			inputs = []string{r.record.User}
		}
		score := strength.CrossCheck(pw, inputs).Score
		res.crossCheck = &score
	}

	return res, true
}

func (p *Pipeline) countInvalid() {
	p.mu.Lock()
	p.stats.RecordsInvalid++
	p.mu.Unlock()
}

func (p *Pipeline) reportProgress(report *Report) {
	p.mu.Lock()
	elapsed := time.Since(p.stats.StartTime)
	p.stats.RecordsValid = report.Analyzed
	if elapsed > 0 {
		p.stats.ProcessingRate = float64(report.TotalRecords) / elapsed.Seconds()
	}
	rate := p.stats.ProcessingRate
	p.mu.Unlock()

	p.logger.Info("Audit progress",
		zap.Int64("records_processed", report.TotalRecords),
		zap.Int64("findings", report.FindingsTotal),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{StartTime: time.Now()}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}

// Mask keeps the first and last character of a password and stars the rest.
// Passwords of two characters or fewer are fully starred.
func Mask(password string) string {
	runes := []rune(password)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}

func computeHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
