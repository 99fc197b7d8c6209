package tiles

import (
	"math"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

// Neutral priors used when an index is empty, so missing data does not
// read as a bad score.
const (
	neutralSentiment   = 50
	neutralTrends      = 50
	neutralConsistency = 50
	neutralNegativePct = 50
	trendsWindow       = 3
)

// SentimentScore is round(100·positive/total) across reviews and social posts.
func SentimentScore(s hub.Snapshot) float64 {
	var pos, total int
	for _, r := range s.Reviews {
		total++
		if r.Sentiment == hub.TonePositive {
			pos++
		}
	}
	for _, r := range s.Social {
		total++
		if r.Sentiment == hub.TonePositive {
			pos++
		}
	}
	if total == 0 {
		return neutralSentiment
	}
	return math.Round(100 * float64(pos) / float64(total))
}

// CompetitionScore is max(0, 100−10·competitors). Fewer competitors score higher.
func CompetitionScore(s hub.Snapshot) float64 {
	return math.Max(0, 100-10*float64(len(s.Competitors)))
}

// DemandScore is min(100, 2·searchResults).
func DemandScore(s hub.Snapshot) float64 {
	return math.Min(100, 2*float64(len(s.Search)))
}

// TrendsScore averages the last three interest points.
func TrendsScore(s hub.Snapshot) float64 {
	if s.Trends == nil || len(s.Trends.InterestOverTime) == 0 {
		return neutralTrends
	}
	pts := s.Trends.InterestOverTime
	if len(pts) > trendsWindow {
		pts = pts[len(pts)-trendsWindow:]
	}
	var sum float64
	for _, p := range pts {
		sum += p.Value
	}
	return sum / float64(len(pts))
}

// AveragePricing is the mean price, or DefaultPrice when none were found.
func AveragePricing(s hub.Snapshot) float64 {
	if len(s.Prices) == 0 {
		return DefaultPrice
	}
	var sum float64
	for _, p := range s.Prices {
		sum += p.Price
	}
	return sum / float64(len(s.Prices))
}

// NewsMomentum is min(100, 10·newsCount).
func NewsMomentum(s hub.Snapshot) float64 {
	return math.Min(100, 10*float64(len(s.News)))
}

// NegativeNewsPct is the share of negative-tone news, in percent.
func NegativeNewsPct(s hub.Snapshot) float64 {
	if len(s.News) == 0 {
		return neutralNegativePct
	}
	var neg int
	for _, n := range s.News {
		if n.Tone == hub.ToneNegative {
			neg++
		}
	}
	return math.Round(100 * float64(neg) / float64(len(s.News)))
}

// PricingConsistency is round(100·(1−cv)) of observed prices, clamped to
// [0,100]. Fewer than two prices yield the neutral prior.
func PricingConsistency(s hub.Snapshot) float64 {
	if len(s.Prices) < 2 {
		return neutralConsistency
	}
	mean := AveragePricing(s)
	if mean == 0 {
		return neutralConsistency
	}
	var ss float64
	for _, p := range s.Prices {
		d := p.Price - mean
		ss += d * d
	}
	cv := math.Sqrt(ss/float64(len(s.Prices))) / mean
	return math.Max(0, math.Min(100, math.Round(100*(1-cv))))
}

type toneCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (c toneCounts) total() int { return c.Positive + c.Neutral + c.Negative }

func (c *toneCounts) add(t hub.Tone) {
	switch t {
	case hub.TonePositive:
		c.Positive++
	case hub.ToneNegative:
		c.Negative++
	default:
		c.Neutral++
	}
}

// platformStats summarises the social posts of one platform.
type platformStats struct {
	Posts      int
	Engagement int
	Tones      toneCounts
}

func statsFor(posts []hub.SocialRecord) platformStats {
	var ps platformStats
	for _, p := range posts {
		ps.Posts++
		ps.Engagement += p.Engagement
		ps.Tones.add(p.Sentiment)
	}
	return ps
}

func (ps platformStats) volume() float64 {
	return math.Min(100, 10*float64(ps.Posts))
}

func (ps platformStats) sentiment() float64 {
	if ps.Posts == 0 {
		return neutralSentiment
	}
	return math.Round(100 * float64(ps.Tones.Positive) / float64(ps.Posts))
}
