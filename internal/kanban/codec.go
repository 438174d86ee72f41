package kanban

import (
	"strconv"
	"strings"

	"coordinator/internal/domain"
)

// Marker prefixes fixes for the description round-trip codec.
const (
	originalIDPrefix = "🏷️ Original ID: "
	estimatedPrefix  = "⏱️ Estimated: "
	estimatedSuffix  = " hours"
	dependenciesPrefix = "🔗 Dependencies: "
)

var priorityEmoji = map[domain.Priority]string{
	domain.PriorityUrgent: "🔴",
	domain.PriorityHigh:   "🟠",
	domain.PriorityMedium: "🟡",
	domain.PriorityLow:    "🟢",
}

var emojiPriority = map[string]domain.Priority{
	"🔴": domain.PriorityUrgent,
	"🟠": domain.PriorityHigh,
	"🟡": domain.PriorityMedium,
	"🟢": domain.PriorityLow,
}

// Encode renders a TaskData's structured fields into the marker-line
// block appended below the free-text description, in the fixed order
// Original ID, Estimated, Priority, Dependencies. Decode must invert
// this exactly (property 10: "byte-exact round-tripping").
func Encode(data TaskData) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(data.Description, "\n"))
	b.WriteString("\n\n")
	if data.OriginalID != "" {
		b.WriteString(originalIDPrefix)
		b.WriteString(data.OriginalID)
		b.WriteByte('\n')
	}
	b.WriteString(estimatedPrefix)
	b.WriteString(formatHours(data.EstimatedHours))
	b.WriteString(estimatedSuffix)
	b.WriteByte('\n')

	priority := data.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	b.WriteString(priorityEmoji[priority])
	b.WriteString(" Priority: ")
	b.WriteString(strings.ToUpper(string(priority)))
	b.WriteByte('\n')

	if len(data.Dependencies) > 0 {
		b.WriteString(dependenciesPrefix)
		b.WriteString(strings.Join(data.Dependencies, ", "))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatHours(h float64) string {
	if h == float64(int64(h)) {
		return strconv.FormatInt(int64(h), 10)
	}
	return strconv.FormatFloat(h, 'g', -1, 64)
}

// Decoded is everything Decode can recover from a description.
type Decoded struct {
	OriginalID     string
	EstimatedHours float64
	Priority       domain.Priority
	Dependencies   []string
}

// Decode parses the marker lines Encode writes out of a full description
// string, tolerant of line order and of markers being absent. The
// free-text body (everything before the first recognized marker line) is
// not returned here — callers that need it should split on the blank
// line Encode inserts before the marker block.
func Decode(description string) Decoded {
	var d Decoded
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, originalIDPrefix):
			d.OriginalID = strings.TrimSpace(strings.TrimPrefix(line, originalIDPrefix))
		case strings.HasPrefix(line, estimatedPrefix):
			rest := strings.TrimPrefix(line, estimatedPrefix)
			rest = strings.TrimSuffix(strings.TrimSpace(rest), "hours")
			rest = strings.TrimSpace(rest)
			if v, err := strconv.ParseFloat(rest, 64); err == nil {
				d.EstimatedHours = v
			}
		case strings.HasPrefix(line, dependenciesPrefix):
			rest := strings.TrimPrefix(line, dependenciesPrefix)
			for _, part := range strings.Split(rest, ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					d.Dependencies = append(d.Dependencies, part)
				}
			}
		default:
			if p, ok := decodePriorityLine(line); ok {
				d.Priority = p
			}
		}
	}
	return d
}

func decodePriorityLine(line string) (domain.Priority, bool) {
	for emoji, priority := range emojiPriority {
		if strings.HasPrefix(line, emoji+" Priority: ") {
			return priority, true
		}
	}
	return domain.Priority(""), false
}

// ResolveDependencies maps a task's raw dependency references (which may
// be original ids) to the board's own ids, using idsByOriginal (built by
// scanning every task's decoded OriginalID). References that are already
// board ids (not present as a key) pass through unchanged.
func ResolveDependencies(raw []string, idsByOriginal map[string]string) []string {
	out := make([]string, 0, len(raw))
	for _, ref := range raw {
		if mapped, ok := idsByOriginal[ref]; ok {
			out = append(out, mapped)
			continue
		}
		out = append(out, ref)
	}
	return out
}

// BuildOriginalIDIndex scans tasks' descriptions and returns a map from
// original id to board id, for ResolveDependencies.
func BuildOriginalIDIndex(tasks []*domain.Task) map[string]string {
	idx := make(map[string]string)
	for _, t := range tasks {
		d := Decode(t.Description)
		if d.OriginalID != "" {
			idx[d.OriginalID] = t.ID
		}
	}
	return idx
}
