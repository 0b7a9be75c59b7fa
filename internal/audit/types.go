package audit

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/raaihank/passforge/internal/strength"
)

// Record is one candidate password read from the input dataset
type Record struct {
	Password string `csv:"password" parquet:"password" json:"password"`
	User     string `csv:"user" parquet:"user,optional" json:"user,omitempty"`
}

// Finding is a record that scored below the configured level. The password
// is masked; only its first and last characters are kept.
type Finding struct {
	Row             int64          `json:"row"`
	Masked          string         `json:"masked"`
	Score           int            `json:"score"`
	Level           strength.Level `json:"level"`
	Feedback        []string       `json:"feedback"`
	CrossCheck      *int           `json:"cross_check_score,omitempty"`
	ReusedElsewhere bool           `json:"reused_elsewhere"`
}

// Report summarises an audit run
type Report struct {
	Source        string                   `json:"source"`
	TotalRecords  int64                    `json:"total_records"`
	Analyzed      int64                    `json:"analyzed"`
	Skipped       int64                    `json:"skipped"`
	Duplicates    int64                    `json:"duplicates"`
	LevelCounts   map[strength.Level]int64 `json:"level_counts"`
	MeanScore     float64                  `json:"mean_score"`
	MeanEntropy   float64                  `json:"mean_entropy"`
	BelowLevel    strength.Level           `json:"below_level"`
	FindingsTotal int64                    `json:"findings_total"`
	Findings      []Finding                `json:"findings"`
	Duration      time.Duration            `json:"duration"`
	Errors        []string                 `json:"errors,omitempty"`
}

// Passed reports whether no record fell below the threshold
func (r *Report) Passed() bool {
	return r.FindingsTotal == 0
}

// Config contains audit pipeline configuration
type Config struct {
	BatchSize      int           `yaml:"batch_size" mapstructure:"batch_size"`
	WorkerCount    int           `yaml:"worker_count" mapstructure:"worker_count"`
	BelowLevel     string        `yaml:"below_level" mapstructure:"below_level"`
	CrossCheck     bool          `yaml:"cross_check" mapstructure:"cross_check"`
	MaxFindings    int           `yaml:"max_findings" mapstructure:"max_findings"`
	MaxLength      int           `yaml:"max_length" mapstructure:"max_length"`
	ProgressReport int           `yaml:"progress_report" mapstructure:"progress_report"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns the settings used by the audit command
func DefaultConfig() Config {
	return Config{
		BatchSize:      500,
		WorkerCount:    4,
		BelowLevel:     string(strength.LevelFair),
		CrossCheck:     false,
		MaxFindings:    1000,
		MaxLength:      256,
		ProgressReport: 10000,
		Timeout:        5 * time.Minute,
	}
}

// ProcessingStats tracks progress of the current run
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsValid   int64     `json:"records_valid"`
	RecordsInvalid int64     `json:"records_invalid"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"`
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension, defaulting to CSV
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatCSV
	}
}
