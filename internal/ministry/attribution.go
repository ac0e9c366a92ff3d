package ministry

import (
	"strings"

	"github.com/jjenkins/parliament/internal/model"
)

// DefaultPreambleLength is how much of a section's content is scanned for designations
const DefaultPreambleLength = 1000

// Input is everything the heuristic looks at for one section
type Input struct {
	Category            string
	Title               string
	Content             string
	SpeakerDesignations []string
}

// Attributor tags sections with a ministry acronym
type Attributor struct {
	ref      *Reference
	preamble int
}

// NewAttributor creates an Attributor over ref. A non-positive preamble uses the default.
func NewAttributor(ref *Reference, preamble int) *Attributor {
	if preamble <= 0 {
		preamble = DefaultPreambleLength
	}
	return &Attributor{ref: ref, preamble: preamble}
}

// Attribute returns the acronym of the ministry most likely responsible for the
// section, or "" when none applies.
func (a *Attributor) Attribute(in Input) string {
	switch in.Category {
	case model.CategoryAdjournmentMotion:
		// raised by a member on any topic; the replying minister is incidental
		return ""
	case model.CategoryMotion:
		if acronym := a.fromTitle(in.Title); acronym != "" {
			return acronym
		}
		return a.fromContent(in.Content)
	}

	if acronym := a.fromContent(in.Content); acronym != "" {
		return acronym
	}
	return a.fromSpeakers(in.SpeakerDesignations)
}

// fromTitle matches full ministry names in a motion title
func (a *Attributor) fromTitle(title string) string {
	for _, e := range a.ref.Entries {
		if strings.Contains(title, e.Name) {
			return e.Acronym
		}
	}
	return ""
}

// fromContent scans the question preamble for designations
func (a *Attributor) fromContent(content string) string {
	if content == "" {
		return ""
	}
	return a.match(preamble(content, a.preamble), strings.Contains)
}

// preamble returns the first n characters of content
func preamble(content string, n int) string {
	chars := 0
	for i := range content {
		if chars == n {
			return content[:i]
		}
		chars++
	}
	return content
}

// fromSpeakers maps the first ministerial speaker designation to a ministry
func (a *Attributor) fromSpeakers(designations []string) string {
	for _, d := range designations {
		lower := strings.ToLower(d)
		if !strings.Contains(lower, "minister") {
			continue
		}
		acronym := a.match(lower, func(s, substr string) bool {
			return strings.Contains(s, strings.ToLower(substr))
		})
		if acronym != "" {
			return acronym
		}
	}
	return ""
}

// match walks the designation table; a PMO match only wins when nothing else does
func (a *Attributor) match(text string, contains func(s, substr string) bool) string {
	pmo := false
	for _, d := range a.ref.Designations {
		if !contains(text, d.Text) {
			continue
		}
		if d.Acronym == PMO {
			pmo = true
			continue
		}
		return d.Acronym
	}
	if pmo {
		return PMO
	}
	return ""
}
