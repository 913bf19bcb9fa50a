package detectors

import "strings"

// Procedure is a canonical procedure-type key. Source records carry free-text
// Macedonian labels; scoring only ever sees these keys.
type Procedure string

const (
	ProcedureOpen             Procedure = "open"
	ProcedureSimplifiedOpen   Procedure = "simplified_open"
	ProcedureNegotiatedNoPub  Procedure = "negotiated_without_publication"
	ProcedureNegotiatedPub    Procedure = "negotiated_with_publication"
	ProcedureLowValue         Procedure = "low_value"
	ProcedureQualification    Procedure = "qualification_system"
	ProcedureCompetitiveDlg   Procedure = "competitive_dialogue"
	ProcedureDesignContest    Procedure = "design_contest"
	ProcedureUnknown          Procedure = "unknown"
)

// procedureVocabulary maps source labels (lowercased) to canonical keys. The
// Cyrillic entries are the literal strings the e-procurement portal emits.
var procedureVocabulary = map[string]Procedure{
	"отворена постапка":                              ProcedureOpen,
	"поедноставена отворена постапка":                ProcedureSimplifiedOpen,
	"постапка со преговарање без објавување на оглас": ProcedureNegotiatedNoPub,
	"постапка со преговарање со објавување на оглас":  ProcedureNegotiatedPub,
	"набавка од мала вредност":                       ProcedureLowValue,
	"поедноставена постапка":                         ProcedureSimplifiedOpen,
	"квалификациски систем":                          ProcedureQualification,
	"конкурентен дијалог":                            ProcedureCompetitiveDlg,
	"конкурс за избор на идејно решение":             ProcedureDesignContest,
	// latin fallbacks seen in older exports
	"open procedure":                    ProcedureOpen,
	"simplified open procedure":         ProcedureSimplifiedOpen,
	"negotiated without publication":    ProcedureNegotiatedNoPub,
	"negotiated with publication":       ProcedureNegotiatedPub,
	"low value procurement":             ProcedureLowValue,
	"qualification system":              ProcedureQualification,
}

// NormalizeProcedure maps a free-text procedure label to its canonical key.
// Unknown labels return ProcedureUnknown, which detectors exclude from
// scoring rather than silently treating as any known procedure.
func NormalizeProcedure(raw string) Procedure {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ProcedureUnknown
	}
	if p, ok := procedureVocabulary[key]; ok {
		return p
	}
	return ProcedureUnknown
}
