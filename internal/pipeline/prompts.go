package pipeline

import (
	"fmt"
	"strings"

	"paperforge/internal/document"
)

const systemPrompt = `You are an experienced academic researcher and writer.
Write precise, well-structured prose. Never include meta-commentary about
the task itself.`

var modeGuidance = map[document.Mode]string{
	document.ModeBasic:    "Keep the outline compact: a handful of main sections, minimal nesting.",
	document.ModeAdvanced: "Produce a thorough outline: 8-15 main sections, each with at least two subsections, including an Abstract and a Conclusion.",
	document.ModeExpert:   "Produce an exhaustive, publication-grade outline: 8-15 main sections with deep subsection coverage, including an Abstract and a Conclusion.",
}

var typeGuidance = map[document.Type]string{
	document.TypeGeneral:    "Structure the document as a general research report.",
	document.TypeLiterature: "Structure the document as a literature review: prior work grouped by theme, synthesis, and gaps.",
	document.TypeExperiment: "Structure the document as an experimental study: hypothesis, methodology, results, discussion.",
	document.TypeArticle:    "Structure the document as a short article with 3-5 sections only.",
}

// buildTargetPrompt asks the model to sharpen a raw topic into a concrete
// research target usable as a document title.
func buildTargetPrompt(topic string) string {
	return fmt.Sprintf(`Refine the following topic into a single, specific research target suitable as the title of a research document.

Topic: %s

Respond with ONLY the refined title on one line, no quotes, no commentary.`, topic)
}

// buildOutlinePrompt requests a numbered outline in the dotted-decimal
// format the outline parser understands.
func buildOutlinePrompt(target string, mode document.Mode, docType document.Type) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a numbered outline for a research document titled %q.\n\n", target)
	sb.WriteString("Rules:\n")
	sb.WriteString("- Number main sections 1. 2. 3. and subsections 1.1 1.2, deeper levels 1.1.1 etc.\n")
	sb.WriteString("- One section per line: the number, a space, then the section title.\n")
	sb.WriteString("- Do not add any text other than the outline lines.\n")
	if g, ok := modeGuidance[mode]; ok {
		sb.WriteString("- " + g + "\n")
	}
	if g, ok := typeGuidance[docType]; ok {
		sb.WriteString("- " + g + "\n")
	}
	return sb.String()
}

// buildSectionPrompt requests body content for one section, with the path of
// ancestor titles as context so the model stays on topic.
func buildSectionPrompt(target string, path []string, sec *document.Section, minWords int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the body content for one section of a research document titled %q.\n\n", target)
	if len(path) > 0 {
		fmt.Fprintf(&sb, "Section context: %s\n", strings.Join(path, " > "))
	}
	fmt.Fprintf(&sb, "Section to write: %s %s\n", sec.Number, sec.Title)
	if sec.Content != "" {
		fmt.Fprintf(&sb, "Section description: %s\n", sec.Content)
	}
	sb.WriteString("\nRules:\n")
	fmt.Fprintf(&sb, "- Aim for at least %d words of substantive prose.\n", minWords)
	sb.WriteString("- Use markdown emphasis (**bold**, *italic*) sparingly; do not repeat the section heading.\n")
	sb.WriteString("- Do not write content for other sections.\n")
	return sb.String()
}

// buildReferencesPrompt requests a plain reference list in the configured
// citation style.
func buildReferencesPrompt(target string, style document.CitationStyle, sectionTitles []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Produce a reference list for a research document titled %q covering: %s.\n\n",
		target, strings.Join(sectionTitles, "; "))
	fmt.Fprintf(&sb, "Format every reference in %s style, one reference per line, no numbering and no commentary.\n", strings.ToUpper(string(style)))
	return sb.String()
}
