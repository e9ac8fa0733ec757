package outline

import (
	"fmt"
	"strings"

	"paperforge/internal/document"
)

// Bounds are the structural limits for one generation profile. All bounds
// are empirically tuned defaults, overridable through configuration.
type Bounds struct {
	MainMin           int     `yaml:"main_min"`
	MainMax           int     `yaml:"main_max"`
	TotalMin          int     `yaml:"total_min"`
	TotalMax          int     `yaml:"total_max"`
	MinAvgSubsections float64 `yaml:"min_avg_subsections"`
	RequireAbstract   bool    `yaml:"require_abstract"`
	RequireConclusion bool    `yaml:"require_conclusion"`
}

// Profiles maps generation profiles to their structural bounds.
type Profiles struct {
	Basic    Bounds `yaml:"basic"`
	Advanced Bounds `yaml:"advanced"`
	Article  Bounds `yaml:"article"`
}

// DefaultProfiles returns the built-in structural bounds.
func DefaultProfiles() Profiles {
	return Profiles{
		Basic: Bounds{TotalMin: 3, TotalMax: 12},
		Advanced: Bounds{
			MainMin: 8, MainMax: 15,
			TotalMin: 25, TotalMax: 52,
			MinAvgSubsections: 2,
			RequireAbstract:   true,
			RequireConclusion: true,
		},
		Article: Bounds{TotalMin: 3, TotalMax: 5},
	}
}

// forRun selects the bounds for a mode/type combination. Article documents
// always use the article profile regardless of mode; expert runs share the
// advanced bounds.
func (p Profiles) forRun(mode document.Mode, docType document.Type) Bounds {
	if docType == document.TypeArticle {
		return p.Article
	}
	if mode == document.ModeBasic {
		return p.Basic
	}
	return p.Advanced
}

// Result is the outcome of a structure check. Reason names the specific
// violated bound and the observed value when Valid is false.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateStructure counts sections at each nesting depth in the raw outline
// text and checks them against the profile bounds. The check is advisory:
// callers may reject and regenerate the outline, or proceed with a warning.
func ValidateStructure(outlineText string, mode document.Mode, docType document.Type, profiles Profiles) Result {
	b := profiles.forRun(mode, docType)

	main, total := countSections(outlineText)

	if total == 0 {
		return Result{Reason: "outline contains no numbered sections"}
	}
	if b.TotalMin > 0 && total < b.TotalMin || b.TotalMax > 0 && total > b.TotalMax {
		return Result{Reason: fmt.Sprintf("total section count %d outside [%d,%d]", total, b.TotalMin, b.TotalMax)}
	}
	if b.MainMin > 0 && main < b.MainMin || b.MainMax > 0 && main > b.MainMax {
		return Result{Reason: fmt.Sprintf("main section count %d outside [%d,%d]", main, b.MainMin, b.MainMax)}
	}
	if b.MinAvgSubsections > 0 && main > 0 {
		avg := float64(total-main) / float64(main)
		if avg < b.MinAvgSubsections {
			return Result{Reason: fmt.Sprintf("average of %.1f subsections per main section below minimum %.1f", avg, b.MinAvgSubsections)}
		}
	}

	lower := strings.ToLower(outlineText)
	if b.RequireAbstract && !strings.Contains(lower, "abstract") {
		return Result{Reason: "missing abstract section"}
	}
	if b.RequireConclusion && !strings.Contains(lower, "conclusion") {
		return Result{Reason: "missing conclusion section"}
	}

	return Result{Valid: true}
}

// countSections returns the number of depth-1 sections and the total number
// of numbered sections, using the same numbering convention as Parse.
func countSections(text string) (main, total int) {
	for _, raw := range strings.Split(text, "\n") {
		line := normalizeLine(raw)
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		total++
		if !strings.Contains(m[1], ".") {
			main++
		}
	}
	return main, total
}
