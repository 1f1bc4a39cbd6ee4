package quote

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Snapshot is one immutable captured reading of the Bitcoin market metrics.
// Rendered is derived from the numeric fields at construction time and never
// mutated afterward; a newer reading replaces the whole snapshot.
type Snapshot struct {
	Price     *float64
	MarketCap *float64
	Volume24h *float64
	UpdatedAt *time.Time // provider-reported, may be absent
	FetchedAt time.Time
	Rendered  string
}

// NewSnapshot builds a snapshot from a market reading. Absent fields render
// as "N/A"; a reading with every field absent is still a valid snapshot.
func NewSnapshot(m Market, fetchedAt time.Time) Snapshot {
	s := Snapshot{
		Price:     m.Price,
		MarketCap: m.MarketCap,
		Volume24h: m.Volume24h,
		UpdatedAt: m.LastUpdatedAt,
		FetchedAt: fetchedAt,
	}
	s.Rendered = render(s)
	return s
}

func render(s Snapshot) string {
	var b strings.Builder
	b.WriteString("--- Real-Time Bitcoin Data ---\n")
	fmt.Fprintf(&b, "Price (USD): %s\n", formatUSD(s.Price))
	fmt.Fprintf(&b, "Market Cap (USD): %s\n", formatUSD(s.MarketCap))
	fmt.Fprintf(&b, "24h Volume (USD): %s\n", formatUSD(s.Volume24h))
	fmt.Fprintf(&b, "Last Updated: %s", formatUpdatedAt(s.UpdatedAt))
	return b.String()
}

// formatUSD renders a currency amount with two decimals and comma grouping,
// e.g. $65,000.50. Nil renders as N/A.
func formatUSD(v *float64) string {
	if v == nil {
		return "N/A"
	}
	s := strconv.FormatFloat(*v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteString(fracPart)
	return b.String()
}

func formatUpdatedAt(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}
