package domain

import "time"

// AddressType is the ground-truth class of a drill token.
type AddressType string

const (
	IPv4 AddressType = "IPv4"
	IPv6 AddressType = "IPv6"
	MAC  AddressType = "MAC"
	// None marks a token that was deliberately malformed.
	None AddressType = "none"
)

// Families returns the three address grammars, in display order.
func Families() []AddressType {
	return []AddressType{IPv4, IPv6, MAC}
}

// AddressTypes returns every answerable type, families first.
func AddressTypes() []AddressType {
	return []AddressType{IPv4, IPv6, MAC, None}
}

// Known reports whether t is one of the four answerable types.
func (t AddressType) Known() bool {
	switch t {
	case IPv4, IPv6, MAC, None:
		return true
	}
	return false
}

// Article returns the indefinite article used in feedback ("an IPv4", "a MAC").
func (t AddressType) Article() string {
	if t == IPv4 || t == IPv6 {
		return "an"
	}
	return "a"
}

// GeneratedAddress is one question token plus its label.
// InvalidType, InvalidReason and Defect are set only when Type is None.
type GeneratedAddress struct {
	Address       string      `json:"address"`
	Type          AddressType `json:"type"`
	InvalidType   AddressType `json:"invalidType,omitempty"`
	InvalidReason string      `json:"invalidReason,omitempty"`
	Defect        string      `json:"defect,omitempty"`
}

// Attempt is one persisted answer.
type Attempt struct {
	ID         string      `json:"id"`
	QuestionID string      `json:"questionId"`
	Timestamp  time.Time   `json:"timestamp"`
	Score      int         `json:"score"`
	MaxScore   int         `json:"maxScore"`
	Type       AddressType `json:"type"`
	Address    string      `json:"address,omitempty"`
}

// Correct reports whether the attempt earned full marks.
func (a Attempt) Correct() bool {
	return a.Score == a.MaxScore
}

// Validate checks the score bounds and type of an attempt.
func (a Attempt) Validate() error {
	if a.MaxScore <= 0 {
		return ErrInvalidMaxScore
	}
	if a.Score < 0 || a.Score > a.MaxScore {
		return ErrScoreOutOfRange
	}
	if !a.Type.Known() {
		return ErrUnknownAddressType
	}
	return nil
}

// Level is one rung of the progression ladder.
type Level struct {
	Emoji       string  `json:"emoji" yaml:"emoji"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	MinPoints   int     `json:"minPoints" yaml:"min_points"`
	MinAccuracy float64 `json:"minAccuracy" yaml:"min_accuracy"`
}

// DefaultLevels is the ladder used when a site does not define its own.
func DefaultLevels() []Level {
	return []Level{
		{Emoji: "🥚", Title: "Duck Egg", Description: "Just getting started", MinPoints: 0, MinAccuracy: 0},
		{Emoji: "🐣", Title: "Hatchling", Description: "Cracking the basics of address formats", MinPoints: 500, MinAccuracy: 50},
		{Emoji: "🐥", Title: "Duckling", Description: "Spotting dots from colons with confidence", MinPoints: 1500, MinAccuracy: 60},
		{Emoji: "🦆", Title: "Duck", Description: "A steady network address spotter", MinPoints: 3000, MinAccuracy: 70},
		{Emoji: "🦢", Title: "Swan", Description: "Near-misses rarely fool you", MinPoints: 6000, MinAccuracy: 80},
		{Emoji: "👑", Title: "Duck Royalty", Description: "The ultimate network address master", MinPoints: 10000, MinAccuracy: 90},
	}
}

// OverallStats is derived from the full attempt log on every query.
type OverallStats struct {
	TotalAttempts int     `json:"totalAttempts"`
	TotalCorrect  int     `json:"totalCorrect"`
	TotalPoints   int     `json:"totalPoints"`
	Accuracy      float64 `json:"accuracy"`
	Level         Level   `json:"level"`
	NextLevel     *Level  `json:"nextLevel,omitempty"`
	Progress      float64 `json:"progress"`
	// PointsToNext and AccuracyToNext are the shortfalls against NextLevel, zero when met.
	PointsToNext   int     `json:"pointsToNext"`
	AccuracyToNext float64 `json:"accuracyToNext"`
}

// TypeStats aggregates attempts for one address type.
type TypeStats struct {
	Attempts int     `json:"attempts"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Site scopes one persisted score history and its presentation.
type Site struct {
	Key           string  `json:"key" yaml:"key"`
	Title         string  `json:"title" yaml:"title"`
	Subtitle      string  `json:"subtitle" yaml:"subtitle"`
	Icon          string  `json:"icon" yaml:"icon"`
	CorrectPoints int     `json:"correctPoints" yaml:"correct_points"`
	MaxPoints     int     `json:"maxPoints" yaml:"max_points"`
	Levels        []Level `json:"levels,omitempty" yaml:"levels"`
}

// DefaultSiteKey is used when a request names no site or an unknown one.
const DefaultSiteKey = "network-addresses"

// DefaultSite is the network address practice site.
func DefaultSite() Site {
	return Site{
		Key:           DefaultSiteKey,
		Title:         "Network Address Practice",
		Subtitle:      "Master the identification of IPv4, IPv6, and MAC addresses",
		Icon:          "🦆",
		CorrectPoints: 100,
		MaxPoints:     100,
	}
}

// AnswerChoice is one of the buttons offered to the learner.
type AnswerChoice struct {
	ID       int         `json:"id"`
	Text     string      `json:"text"`
	Shortcut string      `json:"shortcut"`
	Type     AddressType `json:"type"`
}

// AnswerChoices returns the four fixed choices.
func AnswerChoices() []AnswerChoice {
	return []AnswerChoice{
		{ID: 1, Text: "IPv4", Shortcut: "1", Type: IPv4},
		{ID: 2, Text: "IPv6", Shortcut: "2", Type: IPv6},
		{ID: 3, Text: "MAC", Shortcut: "3", Type: MAC},
		{ID: 4, Text: "None", Shortcut: "4", Type: None},
	}
}

// ChoiceType maps a choice ID to its address type.
func ChoiceType(id int) (AddressType, bool) {
	for _, c := range AnswerChoices() {
		if c.ID == id {
			return c.Type, true
		}
	}
	return "", false
}

// Hint describes one address format for the help panel.
type Hint struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
	Color       string   `json:"color"`
}

// Hints returns the format rules shown to learners.
func Hints() []Hint {
	return []Hint{
		{
			Title:       "IPv4",
			Description: "4 decimal numbers (0-255) separated by dots",
			Examples:    []string{"Example: 192.168.1.1"},
			Color:       "blue",
		},
		{
			Title:       "IPv6",
			Description: "8 groups of 4 hex digits separated by colons. Groups can be empty or compressed.",
			Examples: []string{
				"Example: 2001:0db8:85a3:0000:0000:8a2e:0370:7334",
				"Compressed: 2001:db8::8a2e:370:7334",
			},
			Color: "purple",
		},
		{
			Title:       "MAC",
			Description: "6 pairs of hex digits separated by colons or dashes",
			Examples:    []string{"Example: 00:1A:2B:3C:4D:5E or 00-1A-2B-3C-4D-5E"},
			Color:       "green",
		},
	}
}

// Feedback is the message shown after an answer.
type Feedback struct {
	Message     string `json:"message"`
	Explanation string `json:"explanation,omitempty"`
}

// Question is the learner-facing view of an issued token; the label stays server-side until answered.
type Question struct {
	ID       string    `json:"id"`
	SiteKey  string    `json:"siteKey"`
	Address  string    `json:"address"`
	IssuedAt time.Time `json:"issuedAt"`
}

// AnswerResult summarizes the outcome of one answered question.
type AnswerResult struct {
	QuestionID   string           `json:"questionId"`
	Selected     AddressType      `json:"selected"`
	Correct      bool             `json:"correct"`
	Answer       GeneratedAddress `json:"answer"`
	Score        int              `json:"score"`
	MaxScore     int              `json:"maxScore"`
	Feedback     Feedback         `json:"feedback"`
	Streak       int              `json:"streak"`
	StreakEmojis string           `json:"streakEmojis"`
	Stats        OverallStats     `json:"stats"`
}

// StatsSnapshot is everything the progress view needs for one site.
type StatsSnapshot struct {
	Site         Site                      `json:"site"`
	Overall      OverallStats              `json:"overall"`
	ByType       map[AddressType]TypeStats `json:"byType"`
	Streak       int                       `json:"streak"`
	StreakEmojis string                    `json:"streakEmojis"`
}
