package classify

import "github.com/jmartell/docintel/constants"

// Scope says where a signal is looked for. Filename matches run against the
// normalized name (lowercased, separators stripped), which makes them a
// stronger provenance signal than body text and wins classifier ties.
type Scope string

const (
	ScopeFilename Scope = "filename"
	ScopeText     Scope = "text"
)

// Rule is one weighted signal for one document type. Matching is
// case-insensitive substring containment, which tolerates OCR noise better
// than exact-word matching.
type Rule struct {
	Type   constants.DocumentType
	Signal string
	Scope  Scope
	Weight float32
}

// DefaultRules is the declarative signal table. New document types are added
// here, not in control flow. Generic carries no rules: it is the fallback,
// never a scored candidate.
func DefaultRules() []Rule {
	return []Rule{
		// ProofOfResidence
		{constants.ProofOfResidence, "proofofresidence", ScopeFilename, 3},
		{constants.ProofOfResidence, "proofres", ScopeFilename, 3},
		{constants.ProofOfResidence, "addressproof", ScopeFilename, 3},
		{constants.ProofOfResidence, "utilitybill", ScopeFilename, 3},
		{constants.ProofOfResidence, "lease", ScopeFilename, 2},
		{constants.ProofOfResidence, "por", ScopeFilename, 2},
		{constants.ProofOfResidence, "utility bill", ScopeText, 2},
		{constants.ProofOfResidence, "service address", ScopeText, 2},
		{constants.ProofOfResidence, "lease agreement", ScopeText, 2},
		{constants.ProofOfResidence, "proof of residence", ScopeText, 2},
		{constants.ProofOfResidence, "proof of address", ScopeText, 2},
		{constants.ProofOfResidence, "amount due", ScopeText, 1},
		{constants.ProofOfResidence, "tenant", ScopeText, 1},
		{constants.ProofOfResidence, "residence", ScopeText, 1},

		// ProofOfIncome
		{constants.ProofOfIncome, "proofincome", ScopeFilename, 3},
		{constants.ProofOfIncome, "incomeproof", ScopeFilename, 3},
		{constants.ProofOfIncome, "paystub", ScopeFilename, 3},
		{constants.ProofOfIncome, "salaryslip", ScopeFilename, 3},
		{constants.ProofOfIncome, "poi", ScopeFilename, 2},
		{constants.ProofOfIncome, "income", ScopeFilename, 2},
		{constants.ProofOfIncome, "earnings", ScopeFilename, 2},
		{constants.ProofOfIncome, "pay period", ScopeText, 2},
		{constants.ProofOfIncome, "gross income", ScopeText, 2},
		{constants.ProofOfIncome, "net income", ScopeText, 2},
		{constants.ProofOfIncome, "pay date", ScopeText, 2},
		{constants.ProofOfIncome, "deductions", ScopeText, 1},
		{constants.ProofOfIncome, "employer", ScopeText, 1},
		{constants.ProofOfIncome, "social security", ScopeText, 1},

		// DriverLicenseFront
		{constants.DriverLicenseFront, "driverlicensefront", ScopeFilename, 3},
		{constants.DriverLicenseFront, "dlfront", ScopeFilename, 3},
		{constants.DriverLicenseFront, "licensefront", ScopeFilename, 3},
		{constants.DriverLicenseFront, "driverlicense", ScopeFilename, 2},
		{constants.DriverLicenseFront, "driver license", ScopeText, 2},
		{constants.DriverLicenseFront, "date of birth", ScopeText, 2},
		{constants.DriverLicenseFront, "dob", ScopeText, 1},
		{constants.DriverLicenseFront, "issue date", ScopeText, 1},
		{constants.DriverLicenseFront, "expiration", ScopeText, 1},
		{constants.DriverLicenseFront, "class", ScopeText, 1},

		// DriverLicenseBack
		{constants.DriverLicenseBack, "driverlicenseback", ScopeFilename, 3},
		{constants.DriverLicenseBack, "dlback", ScopeFilename, 3},
		{constants.DriverLicenseBack, "licenseback", ScopeFilename, 3},
		{constants.DriverLicenseBack, "organ donor", ScopeText, 2},
		{constants.DriverLicenseBack, "barcode", ScopeText, 2},
		{constants.DriverLicenseBack, "restrictions", ScopeText, 2},
		{constants.DriverLicenseBack, "endorsement", ScopeText, 2},
		{constants.DriverLicenseBack, "dmv", ScopeText, 1},

		// Registration
		{constants.Registration, "registration", ScopeFilename, 3},
		{constants.Registration, "vehiclereg", ScopeFilename, 3},
		{constants.Registration, "registration", ScopeText, 2},
		{constants.Registration, "vehicle identification", ScopeText, 2},
		{constants.Registration, "plate number", ScopeText, 2},
		{constants.Registration, "vin", ScopeText, 1},

		// Insurance
		{constants.Insurance, "insurance", ScopeFilename, 3},
		{constants.Insurance, "policy", ScopeFilename, 3},
		{constants.Insurance, "coverage", ScopeFilename, 2},
		{constants.Insurance, "policy number", ScopeText, 2},
		{constants.Insurance, "premium", ScopeText, 2},
		{constants.Insurance, "coverage", ScopeText, 1},
		{constants.Insurance, "effective date", ScopeText, 1},

		// Odometer
		{constants.Odometer, "odometer", ScopeFilename, 3},
		{constants.Odometer, "odo", ScopeFilename, 2},
		{constants.Odometer, "mileage", ScopeFilename, 2},
		{constants.Odometer, "odometer", ScopeText, 2},
		{constants.Odometer, "mileage", ScopeText, 2},
		{constants.Odometer, "odometer reading", ScopeText, 2},
	}
}
