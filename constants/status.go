package constants

// Outcome is the terminal state of one certificate submission.
type Outcome string

// Stable values (stored and returned as-is).
const (
	OutcomeVerified      Outcome = "VERIFIED"
	OutcomeReplaced      Outcome = "REPLACED"                // overwrite of an existing certificate
	OutcomeDuplicate     Outcome = "DUPLICATE"               // already stored, overwrite not requested
	OutcomeFoodSelection Outcome = "FOOD_SELECTION_REQUIRED" // sample food unknown to the reference tables
	OutcomeInvalid       Outcome = "VALIDATION_FAILED"
	OutcomeEmpty         Outcome = "EMPTY_DOCUMENT"
	OutcomeFailed        Outcome = "FAILED"
)

// LimitSource records which tier produced a resolved limit.
type LimitSource string

const (
	LimitFromReference LimitSource = "REFERENCE"
	LimitFromCategory  LimitSource = "CATEGORY"
	LimitFromCatalog   LimitSource = "CATALOG"
	LimitFromStated    LimitSource = "STATED"
	LimitDefaultFloor  LimitSource = "DEFAULT_FLOOR"
	LimitPlant         LimitSource = "PLANT"
)

// NameTier records how a substance name was resolved.
type NameTier string

const (
	NameExact     NameTier = "EXACT"
	NameSubstring NameTier = "SUBSTRING"
	NameFuzzy     NameTier = "FUZZY"
	NameVerbatim  NameTier = "VERBATIM"
	NamePlant     NameTier = "PLANT"
)

// LimitAgreement classifies stated vs resolved limit text.
type LimitAgreement string

const (
	AgreementExact         LimitAgreement = "exact"
	AgreementFormatOnly    LimitAgreement = "format_only"
	AgreementMissingSymbol LimitAgreement = "missing_symbol"
	AgreementMismatch      LimitAgreement = "mismatch"
	AgreementMissing       LimitAgreement = "missing"
)

// Agrees reports whether the classification counts as agreement.
func (a LimitAgreement) Agrees() bool {
	return a == AgreementExact || a == AgreementFormatOnly
}
