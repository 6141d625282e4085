package merge

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report summarises what a merge did.
type Report struct {
	RunID string `yaml:"runId"`

	TotalSourceFiles     int `yaml:"totalSourceFiles"`
	TotalSourceSlides    int `yaml:"totalSourceSlides"`
	ImportedSlides       int `yaml:"importedSlides"`
	LayoutAdjustedSlides int `yaml:"layoutAdjustedSlides"` // slides whose geometry was rescaled
	ClonedLayouts        int `yaml:"clonedLayouts"`
	ClonedMasters        int `yaml:"clonedMasters"`
	MediaReused          int `yaml:"mediaReused"`
	MediaAdded           int `yaml:"mediaAdded"`

	SlideTitles []string `yaml:"slideTitles,omitempty"`
	Warnings    []string `yaml:"warnings,omitempty"`
}

// YAML renders the report.
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// String returns a one-paragraph summary.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "imported %d of %d slides from %d source(s)", r.ImportedSlides, r.TotalSourceSlides, r.TotalSourceFiles)
	if r.LayoutAdjustedSlides > 0 {
		fmt.Fprintf(&b, ", rescaled %d", r.LayoutAdjustedSlides)
	}
	fmt.Fprintf(&b, "; cloned %d layout(s) and %d master(s); media: %d added, %d reused",
		r.ClonedLayouts, r.ClonedMasters, r.MediaAdded, r.MediaReused)
	if n := len(r.Warnings); n > 0 {
		fmt.Fprintf(&b, "; %d warning(s)", n)
	}
	return b.String()
}
