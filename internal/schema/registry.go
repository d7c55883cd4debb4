package schema

import (
	"github.com/jmartell/docintel/constants"
)

// ExtractionSchema declares, for one document type, the exact field set the
// pipeline emits, the prompt template used to populate it, and whether the
// type gets a second refinement pass. Static, loaded once, read-only.
type ExtractionSchema struct {
	DocumentType    constants.DocumentType
	Fields          []string
	PromptTemplate  string
	NeedsRefinement bool
	// RefineFields is the subset the refinement pass may replace; empty when
	// NeedsRefinement is false.
	RefineFields []string
}

// registry maps every DocumentType to its schema. A missing entry is a
// programming invariant violation, so ForType panics rather than returning an
// error. The variant set is closed and covered below.
var registry = map[constants.DocumentType]ExtractionSchema{
	constants.ProofOfResidence: {
		DocumentType:   constants.ProofOfResidence,
		Fields:         []string{"FullName", "Address", "IssuerName", "BillDate", "AmountDue", "AccountNumber"},
		PromptTemplate: promptFor("a proof of residence (utility bill, lease, or similar)"),
	},
	constants.ProofOfIncome: {
		DocumentType:   constants.ProofOfIncome,
		Fields:         []string{"EmployeeName", "EmployerName", "PayPeriodStart", "PayPeriodEnd", "GrossIncome", "NetIncome", "PayDate"},
		PromptTemplate: promptFor("a proof of income (pay stub, salary slip, or earnings statement)"),
	},
	constants.DriverLicenseFront: {
		DocumentType:    constants.DriverLicenseFront,
		Fields:          []string{"FullName", "LicenseNumber", "DateOfBirth", "Address", "IssueDate", "ExpirationDate", "Class", "Sex"},
		PromptTemplate:  promptFor("the front side of a U.S. driver's license"),
		NeedsRefinement: true,
		RefineFields:    []string{"LicenseNumber"},
	},
	constants.DriverLicenseBack: {
		DocumentType:    constants.DriverLicenseBack,
		Fields:          []string{"LicenseNumber", "Endorsements", "Restrictions", "OrganDonor", "Barcode"},
		PromptTemplate:  promptFor("the back side of a U.S. driver's license"),
		NeedsRefinement: true,
		RefineFields:    []string{"LicenseNumber"},
	},
	constants.Registration: {
		DocumentType:   constants.Registration,
		Fields:         []string{"OwnerName", "VIN", "PlateNumber", "Make", "Model", "Year", "ExpirationDate"},
		PromptTemplate: promptFor("a vehicle registration document"),
	},
	constants.Insurance: {
		DocumentType:   constants.Insurance,
		Fields:         []string{"PolicyNumber", "InsuredName", "ProviderName", "EffectiveDate", "ExpirationDate", "CoverageType", "Premium"},
		PromptTemplate: promptFor("an insurance policy or coverage document"),
	},
	constants.Odometer: {
		DocumentType:   constants.Odometer,
		Fields:         []string{"OdometerReading", "Unit", "TripReading", "VIN", "ReadingDate"},
		PromptTemplate: promptFor("an odometer reading (dashboard photo or disclosure statement)"),
	},
	constants.Generic: {
		DocumentType:   constants.Generic,
		Fields:         []string{"DocumentTitle", "IssueDate", "ReferenceNumber", "Summary"},
		PromptTemplate: promptFor("a document of unknown type"),
	},
}

// ForType returns the schema registered for t. Total over the closed
// DocumentType set; panics on an unregistered type because that can only be a
// programming error, never runtime input.
func ForType(t constants.DocumentType) ExtractionSchema {
	s, ok := registry[t]
	if !ok {
		panic("schema: no registration for document type " + string(t))
	}
	return s
}

// promptFor builds the per-type extraction instruction. The orchestrator
// appends the field list and the OCR text.
func promptFor(description string) string {
	return "You are a document data extraction agent. The OCR text below comes from " + description + ". " +
		"Extract the requested fields into a single flat JSON object. " +
		"Use null for any field not present in the text. " +
		"Dates should be ISO format (YYYY-MM-DD) when determinable. " +
		"Return ONLY valid JSON - no markdown, no explanations, no code blocks."
}
