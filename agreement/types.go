package agreement

// Role identifies which annotation a column of a label table carries.
type Role int

const (
	// RoleGroundTruth marks the human reference column (named by the base alone).
	RoleGroundTruth Role = iota
	// RoleMachine marks the model prediction column ("<base>:machine").
	RoleMachine
	// RoleSecondPass marks an annotator's duplicate pass ("<base>_2").
	RoleSecondPass
)

const (
	machineSuffix    = ":machine"
	secondPassSuffix = "_2"
)

// ColumnKey names a table column by its base (category code or annotator) and role.
type ColumnKey struct {
	Base string
	Role Role
}

// GroundTruth returns the reference column key for base.
func GroundTruth(base string) ColumnKey { return ColumnKey{Base: base, Role: RoleGroundTruth} }

// Machine returns the prediction column key for base.
func Machine(base string) ColumnKey { return ColumnKey{Base: base, Role: RoleMachine} }

// SecondPass returns the duplicate-pass column key for an annotator.
func SecondPass(annotator string) ColumnKey {
	return ColumnKey{Base: annotator, Role: RoleSecondPass}
}

// Composite is a derived category present whenever any of its bases is present.
type Composite struct {
	Name string   `json:"name" yaml:"name"`
	Of   []string `json:"of" yaml:"of"`
}

// KappaResult is one (annotator pair, category) row of a pairwise kappa table.
type KappaResult struct {
	Op1        string  `json:"op1"`
	Op2        string  `json:"op2"`
	NumOverlap int     `json:"numOverlap"`
	Label      string  `json:"label"`
	Kappa      float64 `json:"kappa"`
	Op1Count   int     `json:"op1Count"`
	Op2Count   int     `json:"op2Count"`
}

// AgreementResult extends KappaResult with classification metrics where Truth
// is treated as the reference and Pred as the prediction.
type AgreementResult struct {
	Truth       string  `json:"truth"`
	Pred        string  `json:"pred"`
	NumOverlap  int     `json:"numOverlap"`
	Label       string  `json:"label"`
	Kappa       float64 `json:"kappa"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	Specificity float64 `json:"specificity"`
	F1          float64 `json:"f1"`
	Op1Count    int     `json:"op1Count"`
	Op2Count    int     `json:"op2Count"`
}

// ConfusionStats holds the binary confusion counts and derived ratios for one label.
type ConfusionStats struct {
	Label       string  `json:"label"`
	TP          int     `json:"tp"`
	TN          int     `json:"tn"`
	FP          int     `json:"fp"`
	FN          int     `json:"fn"`
	Accuracy    float64 `json:"accuracy"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	Specificity float64 `json:"specificity"`
	F1          float64 `json:"f1"`
}

// Positives is the number of reference-positive items (tp+fn).
func (s ConfusionStats) Positives() int { return s.TP + s.FN }

// Negatives is the number of reference-negative items (tn+fp).
func (s ConfusionStats) Negatives() int { return s.TN + s.FP }

// Total is the number of compared items.
func (s ConfusionStats) Total() int { return s.TP + s.TN + s.FP + s.FN }
