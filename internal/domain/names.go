package domain

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Name similarity messages. They are written verbatim to output records.
const (
	NameMsgNoNames      = "no source water name provided and no GNIS_NAME"
	NameMsgNoSource     = "no source water name provided"
	NameMsgNoGNIS       = "no GNIS name"
	NameMsgExact        = "exact water name match"
	NameMsgMostLikely   = "most likely match, based on fuzzy match"
	NameMsgLikely       = "likely match, based on fuzzy match"
	NameMsgNotMatch     = "likely not a match, based on fuzzy match"
	NameMsgTributary    = "tributary or branch in source water name, fuzzy match not conducted."
	mostLikelyThreshold = 0.75
	likelyThreshold     = 0.6
)

// bracketedRe matches parenthesized or bracketed qualifiers such as "(north)".
var bracketedRe = regexp.MustCompile(`[\(\[].*?[\)\]]`)

// abbreviations are expanded in order. Each pattern is space delimited so only
// whole words are touched; "trib)" covers a dangling parenthesis.
var abbreviations = []struct{ from, to string }{
	{" st. ", " stream "},
	{" st ", " stream "},
	{" str ", " stream "},
	{" str. ", " stream "},
	{" rv. ", " river "},
	{" rv ", " river "},
	{" unt ", " unnamed tributary "},
	{" trib. ", " tributary "},
	{" trib) ", " tributary "},
	{" trib ", " tributary "},
	{" ck ", " creek "},
	{" ck. ", " creek "},
	{" br ", " branch "},
	{" br. ", " branch "},
}

// CleanWaterName lowercases a user supplied water name, drops bracketed
// qualifiers and spells out common abbreviations. GNIS names are assumed to
// never be abbreviated.
func CleanWaterName(name string) string {
	s := " " + strings.ToLower(name) + " "
	s = bracketedRe.ReplaceAllString(s, "")
	for _, a := range abbreviations {
		s = strings.ReplaceAll(s, a.from, a.to)
	}
	return strings.TrimSpace(s)
}

// NameSimilarity is the comparison of a flowline GNIS name with the source
// water name.
type NameSimilarity struct {
	Score       float64 `json:"name_similarity"`
	Message     string  `json:"name_similarity_message"`
	CleanedName string  `json:"cleaned_source_water_name,omitempty"`
}

// CompareNames scores gnisName against sourceName from 0 (no match) to 1
// (exact). Empty strings mean the name is absent. Names that look like
// tributaries or branches are not fuzzy matched because they share most
// characters with their parent stream.
func CompareNames(gnisName, sourceName string) NameSimilarity {
	source := NormalizeWaterName(sourceName)
	switch {
	case gnisName == "" && source == "":
		return NameSimilarity{Message: NameMsgNoNames}
	case source == "":
		return NameSimilarity{Message: NameMsgNoSource}
	case gnisName == "":
		return NameSimilarity{Message: NameMsgNoGNIS, CleanedName: strings.ToLower(source)}
	case strings.EqualFold(gnisName, source):
		return NameSimilarity{Score: 1.0, Message: NameMsgExact, CleanedName: strings.ToLower(source)}
	}

	cleaned := CleanWaterName(source)
	if strings.Contains(cleaned, "tributary") || strings.Contains(cleaned, "branch") {
		return NameSimilarity{Message: NameMsgTributary, CleanedName: cleaned}
	}

	ratio := similarityRatio(strings.ToLower(gnisName), cleaned)
	sim := NameSimilarity{Score: ratio, CleanedName: cleaned}
	switch {
	case ratio >= mostLikelyThreshold:
		sim.Message = NameMsgMostLikely
	case ratio >= likelyThreshold:
		sim.Message = NameMsgLikely
	default:
		sim.Message = NameMsgNotMatch
	}
	return sim
}

// similarityRatio is the Ratcliff/Obershelp ratio 2*M/T over characters,
// treating spaces as junk.
func similarityRatio(a, b string) float64 {
	m := difflib.NewMatcherWithJunk(
		strings.Split(a, ""),
		strings.Split(b, ""),
		true,
		func(s string) bool { return s == " " },
	)
	return m.Ratio()
}
