package strength

// Level is one of six ordered strength tiers
type Level string

const (
	LevelVeryWeak   Level = "Very Weak"
	LevelWeak       Level = "Weak"
	LevelFair       Level = "Fair"
	LevelGood       Level = "Good"
	LevelStrong     Level = "Strong"
	LevelVeryStrong Level = "Very Strong"
)

// Levels lists every tier from weakest to strongest
var Levels = []Level{LevelVeryWeak, LevelWeak, LevelFair, LevelGood, LevelStrong, LevelVeryStrong}

// Color returns the display colour of the tier
func (l Level) Color() string {
	switch l {
	case LevelVeryWeak:
		return "#ff4444"
	case LevelWeak:
		return "#ff8800"
	case LevelFair:
		return "#ffaa00"
	case LevelGood:
		return "#88cc00"
	case LevelStrong:
		return "#00cc44"
	case LevelVeryStrong:
		return "#00aa88"
	default:
		return "#ff4444"
	}
}

// Rank returns the position of the tier in Levels, or -1 when unknown
func (l Level) Rank() int {
	for i, level := range Levels {
		if level == l {
			return i
		}
	}
	return -1
}

// ParseLevel maps a tier name back to a Level
func ParseLevel(s string) (Level, bool) {
	for _, level := range Levels {
		if string(level) == s {
			return level, true
		}
	}
	return "", false
}

// Result is the immutable outcome of analysing one password
type Result struct {
	Score       int      `json:"score"`
	Level       Level    `json:"level"`
	Color       string   `json:"color"`
	Entropy     float64  `json:"entropy"`
	Feedback    []string `json:"feedback"`
	TimeToCrack string   `json:"timeToCrack"`
}

// Penalties breaks the entropy deductions down by source
type Penalties struct {
	RepeatedRuns   int     `json:"repeatedRuns"`
	NumericRuns    int     `json:"numericRuns"`
	AlphabeticRuns int     `json:"alphabeticRuns"`
	WeakSubstrings int     `json:"weakSubstrings"`
	Pattern        float64 `json:"pattern"`
	Repetition     float64 `json:"repetition"`
}

// Estimate is the zxcvbn second opinion on a password
type Estimate struct {
	Score            int     `json:"score"`
	Entropy          float64 `json:"entropy"`
	CrackTimeSeconds float64 `json:"crackTimeSeconds"`
	CrackTimeDisplay string  `json:"crackTimeDisplay"`
}
