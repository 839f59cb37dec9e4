// Package config implements the strategy configuration core: the parameter
// schema with hard and soft bounds, validation verdicts, and the versioned
// on-disk store with default-filling and corruption recovery.
package config

import "fmt"

// Parameter names as they appear in the persisted document.
const (
	ParamDailyTradeLimit = "daily_trade_limit"
	ParamProfitThreshold = "profit_threshold_for_selling"
	ParamLossThreshold   = "loss_threshold_for_averaging"
)

// ParameterKind distinguishes integer-valued parameters from decimal ones.
type ParameterKind int

const (
	KindInteger ParameterKind = iota
	KindDecimal
)

// ParameterSpec describes one configurable trading parameter: its default
// value, the hard bound a value must satisfy to be stored at all, and the
// soft bound beyond which the operator has to confirm explicitly.
//
// Every value that crosses the soft bound still satisfies the hard bound;
// the two predicates never overlap in the rejecting direction.
type ParameterSpec struct {
	Name    string
	Kind    ParameterKind
	Prompt  string
	Default float64

	hardOK     func(v float64) bool
	hardReason string
	softHit    func(v float64) bool
	softReason string
}

// VerdictKind enumerates the possible outcomes of validating one value.
type VerdictKind int

const (
	// Accepted means the value satisfies both bounds.
	Accepted VerdictKind = iota
	// RejectedHard means the value violates the hard bound and must be
	// re-collected; it is never stored.
	RejectedHard
	// NeedsConfirmation means the value crossed the soft bound and
	// requires an explicit operator confirmation before acceptance.
	NeedsConfirmation
)

// Verdict is the result of validating one raw value against its spec.
type Verdict struct {
	Kind   VerdictKind
	Reason string
}

// Validate checks a parsed numeric value against the spec's bounds. It is
// pure: the same value always yields the same verdict.
func (p ParameterSpec) Validate(v float64) Verdict {
	if !p.hardOK(v) {
		return Verdict{Kind: RejectedHard, Reason: p.hardReason}
	}
	if p.softHit(v) {
		return Verdict{Kind: NeedsConfirmation, Reason: p.softReason}
	}
	return Verdict{Kind: Accepted}
}

// FormatValue renders a value the way this parameter is displayed: plain
// integer for counts, one decimal place plus percent sign for thresholds.
func (p ParameterSpec) FormatValue(v float64) string {
	if p.Kind == KindInteger {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.1f%%", v)
}

// Specs returns the parameter schema in wizard collection order.
func Specs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:       ParamDailyTradeLimit,
			Kind:       KindInteger,
			Prompt:     "Maximum new stocks to buy per day",
			Default:    1,
			hardOK:     func(v float64) bool { return v > 0 },
			hardReason: "daily trade limit must be greater than 0",
			softHit:    func(v float64) bool { return v > 10 },
			softReason: "a daily trade limit above 10 is unusually high",
		},
		{
			Name:       ParamProfitThreshold,
			Kind:       KindDecimal,
			Prompt:     "Profit percentage threshold for selling (e.g. 5.0 for 5%)",
			Default:    5.0,
			hardOK:     func(v float64) bool { return v > 0 },
			hardReason: "profit threshold must be greater than 0",
			softHit:    func(v float64) bool { return v > 50 },
			softReason: "a profit threshold above 50% will rarely trigger a sell",
		},
		{
			// Loss threshold validates with inverted polarity: values must
			// be negative, and only more-negative values trip the soft
			// bound. Do not "fix" the sign here.
			Name:       ParamLossThreshold,
			Kind:       KindDecimal,
			Prompt:     "Loss percentage threshold for averaging (e.g. -3.0 for -3%)",
			Default:    -3.0,
			hardOK:     func(v float64) bool { return v < 0 },
			hardReason: "loss threshold must be negative (e.g. -3.0)",
			softHit:    func(v float64) bool { return v < -20 },
			softReason: "a loss threshold below -20% allows very deep drawdowns before averaging",
		},
	}
}

// SpecFor looks up a parameter spec by name.
func SpecFor(name string) (ParameterSpec, error) {
	for _, spec := range Specs() {
		if spec.Name == name {
			return spec, nil
		}
	}
	return ParameterSpec{}, fmt.Errorf("unknown configuration parameter: %s", name)
}

// Validate applies the named parameter's bounds to an already-parsed value.
// Parse failures are the caller's concern and never reach this function.
func Validate(name string, value float64) (Verdict, error) {
	spec, err := SpecFor(name)
	if err != nil {
		return Verdict{}, err
	}
	return spec.Validate(value), nil
}
