package scoring

import "regexp"

var (
	hesitationPattern  = regexp.MustCompile(`(?i)\b(um|uh|like|you know|uhm|erm|sort of|kind of)\b`)
	intensifierPattern = regexp.MustCompile(`(?i)\b(actually|basically|literally|obviously|clearly)\b`)
	// Discourse markers only count when followed by whitespace or the end of text.
	discoursePattern = regexp.MustCompile(`(?i)\b(so|well|right|okay|ok)\b`)
	// Conjunctions count when they lead straight into a hesitation.
	conjunctionPattern = regexp.MustCompile(`(?i)\b(and|but|or)\s(um|uh|like|you know)`)

	sentenceBreak = regexp.MustCompile(`[.!?]+`)
)

var transitionCues = []string{
	"first", "second", "third", "finally", "moreover", "furthermore",
	"however", "therefore", "consequently", "in addition", "on the other hand",
}

var connectorCues = []string{
	"because", "since", "as a result", "due to", "for this reason",
}

var evidenceCues = []string{
	"data", "study", "research", "statistics", "example", "for instance",
	"according to", "studies show", "research indicates",
}

var introCues = []string{"introduction", "let me", "i'll", "we'll"}

var conclusionCues = []string{"conclusion", "summary", "in summary", "to conclude"}

var emotionalWords = []string{
	"important", "crucial", "significant", "vital", "essential",
	"amazing", "incredible", "outstanding", "remarkable",
}

var evidenceWords = []string{"data", "study", "research", "statistics", "example", "case", "instance"}

var modeMultipliers = map[string]float64{
	"debate":       1.2,
	"interview":    1.0,
	"presentation": 1.1,
	"casual":       0.8,
	"general":      1.0,
}
