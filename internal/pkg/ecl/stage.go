package ecl

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Stage is the IFRS 9 bucket a loss table belongs to.
type Stage string

const (
	StageUnknown     Stage = ""
	Stage1           Stage = "Estágio1"
	Stage2           Stage = "Estágio2"
	Stage3           Stage = "Estágio3"
	StageConsolidado Stage = "Consolidado"
)

// Stages lists the known stages in report order.
var Stages = []Stage{Stage1, Stage2, Stage3, StageConsolidado}

var stagePattern = regexp.MustCompile(`(?:estagio|stage)([123])`)

// ParseStage accepts the stage names as stored and the loose forms detected
// in captions.
func ParseStage(s string) Stage {
	return DetectStage(s)
}

// DetectStage looks for a stage name in the caption first, then in the
// header cells. Accents, case and spacing are ignored.
func DetectStage(caption string, header ...string) Stage {
	candidates := append([]string{caption}, header...)
	for _, c := range candidates {
		if st := stageIn(fold(c)); st != StageUnknown {
			return st
		}
	}
	return StageUnknown
}

func stageIn(folded string) Stage {
	if m := stagePattern.FindStringSubmatch(folded); m != nil {
		switch m[1] {
		case "1":
			return Stage1
		case "2":
			return Stage2
		case "3":
			return Stage3
		}
	}
	if strings.Contains(folded, "consolidado") {
		return StageConsolidado
	}
	return StageUnknown
}

// fold lowercases, strips accents and removes every non alphanumeric rune so
// "Estágio 1", "ESTAGIO-1" and "estagio1" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(out) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
