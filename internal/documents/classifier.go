package documents

import "strings"

// Document types assigned by Classify.
const (
	TypeContract        = "contract"
	TypeRealEstate      = "real_estate"
	TypeRealEstateLease = "real_estate_lease"
	TypeLegalDocument   = "legal_document"
	TypeGeneralDocument = "general_document"
)

// Term lists are multilingual (English and Hebrew) and matched as literal
// case-insensitive substrings.
var (
	contractTerms = []string{
		"agreement", "contract", "terms and conditions",
		"whereas", "party of the first part", "consideration",
		"executed", "binding", "covenant", "indemnify",
		"חוזה", "הסכם", "תנאים", "התחייבות", "צדדים", "משכיר", "שוכר",
	}

	legalTerms = []string{
		"plaintiff", "defendant", "court", "jurisdiction",
		"statute", "regulation", "compliance", "liability",
		"בית משפט", "חוק", "תקנות", "אחריות",
	}

	realEstateTerms = []string{
		"property", "real estate", "lease", "tenant", "landlord",
		"premises", "rent", "mortgage", "deed", "title",
		"נכס", "דירה", "משכיר", "שוכר", "שכירות", "דמי שכירות",
	}

	contractFilenameTerms = []string{"contract", "agreement", "חוזה", "הסכם"}
	leaseFilenameTerms    = []string{"lease", "rental", "שכירות"}
	legalFilenameTerms    = []string{"legal", "court", "case", "משפט"}
)

// Classify assigns a document type from content and filename. Filename
// matches take absolute priority over content scoring. Pure function.
func Classify(text, filename string) string {
	textLower := strings.ToLower(text)
	filenameLower := strings.ToLower(filename)

	if containsAny(filenameLower, contractFilenameTerms) {
		return TypeContract
	}
	if containsAny(filenameLower, leaseFilenameTerms) {
		return TypeRealEstateLease
	}
	if containsAny(filenameLower, legalFilenameTerms) {
		return TypeLegalDocument
	}

	switch {
	case scoreTerms(textLower, contractTerms) >= 2:
		return TypeContract
	case scoreTerms(textLower, realEstateTerms) >= 2:
		return TypeRealEstate
	case scoreTerms(textLower, legalTerms) >= 2:
		return TypeLegalDocument
	default:
		return TypeGeneralDocument
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// scoreTerms counts how many distinct terms appear in the text.
func scoreTerms(textLower string, terms []string) int {
	score := 0
	for _, term := range terms {
		if strings.Contains(textLower, term) {
			score++
		}
	}
	return score
}
