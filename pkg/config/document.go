package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the fixed schema/format tag written into every saved document.
const Version = "1.0"

const (
	keyConfigVersion = "config_version"
	keyLastUpdated   = "last_updated"
)

// Document is the persisted configuration entity: the three trading
// parameters plus the format version tag and last-updated timestamp.
// Keys the schema does not recognize survive a load/save round trip
// verbatim so older builds can read documents written by newer ones.
type Document struct {
	DailyTradeLimit int
	ProfitThreshold float64
	LossThreshold   float64
	ConfigVersion   string
	LastUpdated     time.Time

	extra map[string]json.RawMessage
}

// DefaultDocument builds an in-memory document holding every parameter's
// default value. Nothing is persisted until the operator completes setup.
func DefaultDocument() *Document {
	d := &Document{ConfigVersion: Version}
	for _, spec := range Specs() {
		// Defaults always satisfy their own hard bound.
		_ = d.SetValue(spec.Name, spec.Default)
	}
	return d
}

// Value returns the current value of the named parameter.
func (d *Document) Value(name string) (float64, error) {
	switch name {
	case ParamDailyTradeLimit:
		return float64(d.DailyTradeLimit), nil
	case ParamProfitThreshold:
		return d.ProfitThreshold, nil
	case ParamLossThreshold:
		return d.LossThreshold, nil
	}
	return 0, fmt.Errorf("unknown configuration parameter: %s", name)
}

// SetValue assigns the named parameter. Integer parameters are truncated
// from the numeric form the validator works with.
func (d *Document) SetValue(name string, v float64) error {
	switch name {
	case ParamDailyTradeLimit:
		d.DailyTradeLimit = int(v)
	case ParamProfitThreshold:
		d.ProfitThreshold = v
	case ParamLossThreshold:
		d.LossThreshold = v
	default:
		return fmt.Errorf("unknown configuration parameter: %s", name)
	}
	return nil
}

// Clone returns an independent copy, unrecognized keys included. The wizard
// mutates a clone so an aborted session leaves the loaded document intact.
func (d *Document) Clone() *Document {
	out := *d
	if d.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(d.extra))
		for k, v := range d.extra {
			out.extra[k] = v
		}
	}
	return &out
}

// MarshalJSON emits the wire form: parameter keys, version tag, RFC 3339
// timestamp, and any preserved unrecognized keys.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.extra)+5)
	for k, v := range d.extra {
		out[k] = v
	}
	out[ParamDailyTradeLimit] = d.DailyTradeLimit
	out[ParamProfitThreshold] = d.ProfitThreshold
	out[ParamLossThreshold] = d.LossThreshold
	out[keyConfigVersion] = d.ConfigVersion
	if d.LastUpdated.IsZero() {
		out[keyLastUpdated] = nil
	} else {
		out[keyLastUpdated] = d.LastUpdated.Format(time.RFC3339)
	}
	return json.Marshal(out)
}
