package websearch

// DepthProfile bundles the breadth and budget parameters for one named
// search depth. Breadth increases strictly from normal to deep to deeper.
type DepthProfile struct {
	Name string
	// BroadResults caps the general-web query of phase 1.
	BroadResults int
	// NewsResults caps the news query of phase 1.
	NewsResults int
	// ScrapeBudget caps full-content fetches for broad results.
	ScrapeBudget int
	// NewsBudget caps full-content fetches for news results.
	NewsBudget int
	// TargetedSuffixes are appended to the original query to form phase 4
	// follow-up queries.
	TargetedSuffixes []string
	// TargetedBudget caps both per-follow-up provider results and targeted
	// full-content fetches.
	TargetedBudget int
	// MaxWords bounds extracted text per page.
	MaxWords int
}

var targetedSuffixes = []string{
	"analysis details",
	"latest developments",
	"expert review",
	"statistics data",
}

func defaultProfiles() map[string]DepthProfile {
	return map[string]DepthProfile{
		"normal": {
			Name:             "normal",
			BroadResults:     4,
			NewsResults:      2,
			ScrapeBudget:     1,
			NewsBudget:       0,
			TargetedSuffixes: targetedSuffixes[:1],
			TargetedBudget:   1,
			MaxWords:         750,
		},
		"deep": {
			Name:             "deep",
			BroadResults:     6,
			NewsResults:      3,
			ScrapeBudget:     3,
			NewsBudget:       1,
			TargetedSuffixes: targetedSuffixes[:2],
			TargetedBudget:   2,
			MaxWords:         1500,
		},
		"deeper": {
			Name:             "deeper",
			BroadResults:     8,
			NewsResults:      4,
			ScrapeBudget:     4,
			NewsBudget:       2,
			TargetedSuffixes: targetedSuffixes,
			TargetedBudget:   3,
			MaxWords:         2000,
		},
	}
}

// DefaultNoScrape lists domains that reject scraping or render nothing
// useful without a browser. Their results stay snippet-only. Static
// configuration data, overridable at construction.
var DefaultNoScrape = []string{
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"linkedin.com",
	"youtube.com",
	"tiktok.com",
	"reddit.com",
	"pinterest.com",
	"quora.com",
}
