package engine

import "time"

// --- Core video types ---

// VideoRecord is the normalized unit returned by every Source.
// ID is unique within one acquisition result set; records from different
// sources are never merged by content.
type VideoRecord struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	AuthorID      string `json:"authorId,omitempty"`
	Description   string `json:"description"`
	ViewCount     int64  `json:"viewCount"`
	LengthSeconds int    `json:"lengthSeconds"` // 0 = unknown
	PublishedText string `json:"publishedText"` // opaque, format differs per source
	Thumbnail     string `json:"thumbnail,omitempty"`
	Source        string `json:"source,omitempty"`
	SearchKeyword string `json:"searchKeyword,omitempty"`
}

// URL returns the watch URL for the video.
func (v VideoRecord) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// PreFilterResult is the cheap heuristic verdict attached to a video before classification.
type PreFilterResult struct {
	InfringementScore       int     `json:"infringementScore"`
	LegitimateScore         int     `json:"legitimateScore"`
	InfringementProbability float64 `json:"infringementProbability"`
	Priority                int     `json:"priority"`
	ShouldAnalyze           bool    `json:"shouldAnalyze"`
}

// ScoredVideo pairs a video with its pre-filter result.
type ScoredVideo struct {
	VideoRecord
	PreFilter PreFilterResult `json:"preFilter"`
}

// CopyrightType is the kind of protected work a video appears to infringe.
type CopyrightType string

const (
	CopyrightMovie    CopyrightType = "movie"
	CopyrightTVShow   CopyrightType = "tvshow"
	CopyrightMusic    CopyrightType = "music"
	CopyrightGame     CopyrightType = "game"
	CopyrightSoftware CopyrightType = "software"
	CopyrightOther    CopyrightType = "other"
	CopyrightNone     CopyrightType = "none"
)

// ParseCopyrightType maps free-form model output onto the enum.
// Empty input is "none"; unknown values are "other".
func ParseCopyrightType(s string) CopyrightType {
	switch ct := CopyrightType(normalizeToken(s)); ct {
	case CopyrightMovie, CopyrightTVShow, CopyrightMusic, CopyrightGame, CopyrightSoftware, CopyrightOther, CopyrightNone:
		return ct
	case "":
		return CopyrightNone
	case "tv", "tv show", "tv_show", "series":
		return CopyrightTVShow
	default:
		return CopyrightOther
	}
}

// ClassificationResult is the guarded verdict for one analyzed video.
type ClassificationResult struct {
	VideoID            string        `json:"videoId"`
	VideoTitle         string        `json:"videoTitle"`
	ChannelName        string        `json:"channelName"`
	IsLikelyInfringing bool          `json:"isLikelyInfringing"`
	ConfidenceScore    int           `json:"confidenceScore"`
	Reasons            []string      `json:"reasons"`
	CopyrightType      CopyrightType `json:"copyrightType"`
	FairUseFactors     []string      `json:"fairUseFactors"`
	AnalysisTimestamp  time.Time     `json:"analysisTimestamp"`
	Error              string        `json:"error,omitempty"`
}

// SummaryReport aggregates classification results. Derived, never stored.
type SummaryReport struct {
	TotalAnalyzed        int                    `json:"totalAnalyzed"`
	LikelyInfringing     int                    `json:"likelyInfringing"`
	HighConfidence       int                    `json:"highConfidence"`
	PercentageInfringing string                 `json:"percentageInfringing"`
	TypeBreakdown        map[CopyrightType]int  `json:"typeBreakdown"`
	TopInfringing        []ClassificationResult `json:"topInfringing"`
}

// KeywordSet is the ranked keyword research result for a subject.
type KeywordSet struct {
	MainKeyword string          `json:"mainKeyword"`
	TopKeywords []RankedKeyword `json:"topKeywords"`
}

// RankedKeyword is one keyword with its estimated monthly volume.
type RankedKeyword struct {
	Keyword         string  `json:"keyword"`
	MonthlySearches int     `json:"monthlySearches"`
	Competition     float64 `json:"competition,omitempty"`
	RelatedScore    float64 `json:"relatedScore,omitempty"`
}

// --- Request / response types ---

type SearchAnalysisRequest struct {
	Keywords         string   `json:"keywords,omitempty" jsonschema:"Search keywords (either keywords or category is required)"`
	Category         string   `json:"category,omitempty" jsonschema:"Trending category: default, music, gaming, movies"`
	MaxResults       int      `json:"maxResults,omitempty" jsonschema:"Max videos to acquire (default: 50)"`
	ChannelWhitelist []string `json:"channelWhitelist,omitempty" jsonschema:"Channel names to exclude (case-insensitive)"`
}

type SearchAnalysisResponse struct {
	RunID    string                 `json:"runId"`
	Message  string                 `json:"message"`
	Videos   int                    `json:"videos"`
	Analyses []ClassificationResult `json:"analyses"`
	Report   SummaryReport          `json:"report"`
}

type SubjectAnalysisRequest struct {
	SubjectName      string   `json:"subjectName" jsonschema:"Subject (e.g. game name) to research and scan"`
	ChannelWhitelist []string `json:"channelWhitelist,omitempty" jsonschema:"Channel names to exclude (case-insensitive)"`
}

type SubjectAnalysisResponse struct {
	RunID                string           `json:"runId"`
	Message              string           `json:"message"`
	SubjectName          string           `json:"subjectName"`
	Keywords             KeywordSet       `json:"keywords"`
	TotalVideosAnalyzed  int              `json:"totalVideosAnalyzed"`
	StrikableVideosCount int              `json:"strikableVideosCount"`
	StrikableVideos      []StrikableVideo `json:"strikableVideos"`
}

// StrikableVideo is a high-confidence takedown candidate.
type StrikableVideo struct {
	URL             string   `json:"url"`
	VideoID         string   `json:"videoId"`
	Title           string   `json:"title"`
	Channel         string   `json:"channel"`
	ConfidenceScore int      `json:"confidenceScore"`
	Keyword         string   `json:"keyword"`
	Reasons         []string `json:"reasons"`
	Description     string   `json:"description"`
	ViewCount       int64    `json:"viewCount"`
	LengthSeconds   int      `json:"lengthSeconds"`
	PublishedText   string   `json:"publishedText"`
}
