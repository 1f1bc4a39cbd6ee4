package chat

import (
	"regexp"
	"sort"
	"strings"
)

// Link is one labeled resource URL.
type Link struct {
	Label string
	URL   string
}

// LinkRule maps a case-insensitive pattern to resource links appended to
// answers that mention the topic. Rules are read-only at runtime.
type LinkRule struct {
	Pattern *regexp.Regexp
	Links   []Link
}

// NewLinkRule compiles a case-insensitive rule. It panics on an invalid
// pattern; rules are static configuration, so a bad one is a programming bug.
func NewLinkRule(pattern string, links ...Link) LinkRule {
	return LinkRule{
		Pattern: regexp.MustCompile(`(?i)` + pattern),
		Links:   links,
	}
}

// DefaultLinkRules is the static table of topic keywords to resources.
func DefaultLinkRules() []LinkRule {
	return []LinkRule{
		NewLinkRule(`lightning\s+network|layer\s*2`,
			Link{Label: "Lightning Network", URL: "https://lightning.network/"}),
		NewLinkRule(`wallet`,
			Link{Label: "Choose your Bitcoin wallet", URL: "https://bitcoin.org/en/choose-your-wallet"}),
		NewLinkRule(`mining|miner|proof[\s-]of[\s-]work`,
			Link{Label: "How Bitcoin mining works", URL: "https://bitcoin.org/en/how-it-works"}),
		NewLinkRule(`whitepaper|satoshi\s+nakamoto`,
			Link{Label: "Bitcoin whitepaper", URL: "https://bitcoin.org/bitcoin.pdf"}),
		NewLinkRule(`halving`,
			Link{Label: "Bitcoin halving explained", URL: "https://www.bitcoinblockhalf.com/"}),
		NewLinkRule(`blockchain|block\s+explorer|mempool`,
			Link{Label: "Mempool block explorer", URL: "https://mempool.space/"}),
	}
}

// AnnotateLinks appends a de-duplicated, alphabetically sorted related
// resources list when any rule matches the answer text. The answer is
// returned unchanged when nothing matches.
func AnnotateLinks(answer string, rules []LinkRule) string {
	seen := make(map[string]struct{})
	var matched []Link
	for _, rule := range rules {
		if !rule.Pattern.MatchString(answer) {
			continue
		}
		for _, l := range rule.Links {
			if _, dup := seen[l.URL]; dup {
				continue
			}
			seen[l.URL] = struct{}{}
			matched = append(matched, l)
		}
	}
	if len(matched) == 0 {
		return answer
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Label < matched[j].Label })

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n**Related resources:**")
	for _, l := range matched {
		b.WriteString("\n- [")
		b.WriteString(l.Label)
		b.WriteString("](")
		b.WriteString(l.URL)
		b.WriteString(")")
	}
	return b.String()
}
