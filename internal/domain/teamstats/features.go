package teamstats

// Category buckets a feature the way original_source's
// advanced_analytics.py groups ML features for reporting (serve, reception,
// setting, attack, defense) — spec.md names FeatureCategory on
// FeatureImportance but leaves the bucket assignment unspecified; this is
// the fixed mapping SPEC_FULL §4.5 adds.
type Category int

const (
	CategoryServe Category = iota
	CategoryReception
	CategorySetting
	CategoryAttack
	CategoryDefense
)

func (c Category) String() string {
	switch c {
	case CategoryServe:
		return "serve"
	case CategoryReception:
		return "reception"
	case CategorySetting:
		return "setting"
	case CategoryAttack:
		return "attack"
	case CategoryDefense:
		return "defense"
	default:
		return "unknown"
	}
}

// Range bounds a feature's valid domain, used by the perturbation generator
// to clamp after additive noise (spec.md §4.4).
type Range struct {
	Min, Max float64
}

// Field is one entry of the explicit feature table spec.md §9 requires in
// place of string-keyed reflection: a name, a getter/setter pair bound to a
// Stats value, a category, and a valid range. Perturbation, feature
// importance, and SHAP all iterate this table instead of touching struct
// tags or reflect.Value.
type Field struct {
	Name     string
	Category Category
	Range    Range
	Get      func(Stats) float64
	// With returns a copy of s with this field set to v. Derived fields
	// (ServeInPlay, HittingEfficiency) have a nil With — they are read-only
	// projections and the perturbation generator skips them when sampling.
	With func(s Stats, v float64) Stats
}

// Table is the canonical, order-stable list of every scalar feature on
// Stats. Index order is the order feature importances and SHAP columns are
// reported in before re-sorting by score.
var Table = []Field{
	{"ace", CategoryServe, Range{0, 1},
		func(s Stats) float64 { return s.ServeAce },
		func(s Stats, v float64) Stats { s.ServeAce = v; return s }},
	{"error", CategoryServe, Range{0, 1},
		func(s Stats) float64 { return s.ServeError },
		func(s Stats, v float64) Stats { s.ServeError = v; return s }},
	{"in_play", CategoryServe, Range{0, 1},
		func(s Stats) float64 { return s.ServeInPlay() },
		nil},
	{"perfect", CategoryReception, Range{0, 1},
		func(s Stats) float64 { return s.ReceptionPerfect },
		func(s Stats, v float64) Stats { s.ReceptionPerfect = v; return s }},
	{"good", CategoryReception, Range{0, 1},
		func(s Stats) float64 { return s.ReceptionGood },
		func(s Stats, v float64) Stats { s.ReceptionGood = v; return s }},
	{"poor", CategoryReception, Range{0, 1},
		func(s Stats) float64 { return s.ReceptionPoor },
		func(s Stats, v float64) Stats { s.ReceptionPoor = v; return s }},
	{"reception_error", CategoryReception, Range{0, 1},
		func(s Stats) float64 { return s.ReceptionError },
		func(s Stats, v float64) Stats { s.ReceptionError = v; return s }},
	{"ball_handling_error", CategorySetting, Range{0, 1},
		func(s Stats) float64 { return s.BallHandlingError },
		func(s Stats, v float64) Stats { s.BallHandlingError = v; return s }},
	{"kill", CategoryAttack, Range{0, 1},
		func(s Stats) float64 { return s.AttackKill },
		func(s Stats, v float64) Stats { s.AttackKill = v; return s }},
	{"atk_error", CategoryAttack, Range{0, 1},
		func(s Stats) float64 { return s.AttackError },
		func(s Stats, v float64) Stats { s.AttackError = v; return s }},
	{"hitting_efficiency", CategoryAttack, Range{-1, 1},
		func(s Stats) float64 { return s.HittingEfficiency() },
		nil},
	{"dig", CategoryDefense, Range{0, 1},
		func(s Stats) float64 { return s.Dig },
		func(s Stats, v float64) Stats { s.Dig = v; return s }},
	{"block_kill", CategoryDefense, Range{0, 1},
		func(s Stats) float64 { return s.BlockKill },
		func(s Stats, v float64) Stats { s.BlockKill = v; return s }},
	{"controlled_block", CategoryDefense, Range{0, 1},
		func(s Stats) float64 { return s.ControlledBlock },
		func(s Stats, v float64) Stats { s.ControlledBlock = v; return s }},
	{"block_error", CategoryDefense, Range{0, 1},
		func(s Stats) float64 { return s.BlockError },
		func(s Stats, v float64) Stats { s.BlockError = v; return s }},
}

// Mutable reports whether a table entry can be perturbed (has a setter).
func (f Field) Mutable() bool { return f.With != nil }
