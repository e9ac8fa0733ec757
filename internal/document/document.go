// Package document holds the canonical document model produced by the
// generation pipeline: a tree of sections plus references.
package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Section is a node in the outline/content tree. Number is the dotted-decimal
// label from the outline ("1", "1.1", "1.1.1"); its segment count determines
// nesting depth. Content starts empty and is filled in by the pipeline after
// the tree is structurally complete.
type Section struct {
	Number      string     `json:"number"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Subsections []*Section `json:"subsections,omitempty"`
	// Warning carries a non-fatal diagnostic (e.g. content below the minimum
	// word count). It never blocks export.
	Warning string `json:"warning,omitempty"`
}

// Depth returns the nesting depth implied by the section number
// (1 for "3", 2 for "3.1", ...). Zero for an unnumbered section.
func (s *Section) Depth() int {
	if s.Number == "" {
		return 0
	}
	return strings.Count(s.Number, ".") + 1
}

// Walk visits s and all descendants depth-first in document order.
func (s *Section) Walk(fn func(*Section)) {
	fn(s)
	for _, sub := range s.Subsections {
		sub.Walk(fn)
	}
}

// Document is the result of one generation run.
type Document struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Sections   []*Section `json:"sections"`
	References []string   `json:"references"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CountSections returns the total number of sections including subsections.
func (d *Document) CountSections() int {
	n := 0
	for _, s := range d.Sections {
		s.Walk(func(*Section) { n++ })
	}
	return n
}

// Mode is the depth profile for a generation run.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeAdvanced Mode = "advanced"
	ModeExpert   Mode = "expert"
)

// Type is the structural profile for a generation run.
type Type string

const (
	TypeGeneral    Type = "general"
	TypeLiterature Type = "literature"
	TypeExperiment Type = "experiment"
	TypeArticle    Type = "article"
)

// CitationStyle only affects how reference strings are requested from the
// model, never the document structure.
type CitationStyle string

const (
	CitationAPA     CitationStyle = "apa"
	CitationMLA     CitationStyle = "mla"
	CitationChicago CitationStyle = "chicago"
	CitationHarvard CitationStyle = "harvard"
)

// ParseMode validates a mode string, defaulting empty to ModeBasic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeBasic, nil
	case ModeBasic, ModeAdvanced, ModeExpert:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode: %s", s)
}

// ParseType validates a document type string, defaulting empty to TypeGeneral.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "":
		return TypeGeneral, nil
	case TypeGeneral, TypeLiterature, TypeExperiment, TypeArticle:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown document type: %s", s)
}

// ParseCitationStyle validates a citation style, defaulting empty to APA.
func ParseCitationStyle(s string) (CitationStyle, error) {
	switch CitationStyle(s) {
	case "":
		return CitationAPA, nil
	case CitationAPA, CitationMLA, CitationChicago, CitationHarvard:
		return CitationStyle(s), nil
	}
	return "", fmt.Errorf("unknown citation style: %s", s)
}

// GenerationConfig is the immutable per-run configuration.
type GenerationConfig struct {
	Topic         string        `json:"topic"`
	Mode          Mode          `json:"mode"`
	Type          Type          `json:"type"`
	CitationStyle CitationStyle `json:"citation_style"`
	// SeedReferences are prepended to the generated reference list, typically
	// citations extracted from imported source papers.
	SeedReferences []string `json:"seed_references,omitempty"`
}

// ProgressState is a transient progress report for one run. Progress is
// 0-100 and monotonically non-decreasing within a run.
type ProgressState struct {
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// WordCount counts whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeTitle converts a document title into a filename-safe stem by
// replacing runs of non-alphanumeric characters with underscores.
func SanitizeTitle(title string) string {
	s := nonAlnum.ReplaceAllString(strings.TrimSpace(title), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "document"
	}
	return s
}
