package constants

// DocumentType is the closed classification of a document's real-world purpose.
// Classification always terminates in exactly one member; Generic is the
// mandatory fallback when nothing else matches.
type DocumentType string

const (
	ProofOfResidence   DocumentType = "ProofOfResidence"
	ProofOfIncome      DocumentType = "ProofOfIncome"
	DriverLicenseFront DocumentType = "DriverLicenseFront"
	DriverLicenseBack  DocumentType = "DriverLicenseBack"
	Registration       DocumentType = "Registration"
	Insurance          DocumentType = "Insurance"
	Odometer           DocumentType = "Odometer"
	Generic            DocumentType = "Generic"
)

var allDocumentTypes = []DocumentType{
	ProofOfResidence,
	ProofOfIncome,
	DriverLicenseFront,
	DriverLicenseBack,
	Registration,
	Insurance,
	Odometer,
	Generic,
}

// AllDocumentTypes returns the closed variant set, Generic last.
func AllDocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

// TypePriority is the fixed tie-break order for the classifier: identity
// documents first, then vehicle paperwork, then financial documents, Generic
// last. The order is part of the classifier contract: changing it changes
// classification results.
var TypePriority = []DocumentType{
	DriverLicenseFront,
	DriverLicenseBack,
	Registration,
	Insurance,
	Odometer,
	ProofOfIncome,
	ProofOfResidence,
	Generic,
}

// PriorityRank returns the position of t in TypePriority; unknown types rank last.
func PriorityRank(t DocumentType) int {
	for i, p := range TypePriority {
		if p == t {
			return i
		}
	}
	return len(TypePriority)
}
