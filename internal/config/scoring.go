package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
	"procwatch/internal/scoring"
)

// scoringFile is the on-disk shape of the optional scoring override file.
// Monetary thresholds are plain integers in MKD.
type scoringFile struct {
	Weights    map[string]float64 `yaml:"weights"`
	Thresholds struct {
		SingleBidderMinValue int64   `yaml:"single_bidder_min_value"`
		HighValue            int64   `yaml:"high_value"`
		DeadlineP25Days      int     `yaml:"deadline_p25_days"`
		DeadlineP10Days      int     `yaml:"deadline_p10_days"`
		LowValueCeiling      int64   `yaml:"low_value_ceiling"`
		SplitThreshold       int64   `yaml:"split_threshold"`
		Statutory            []int64 `yaml:"statutory"`
		RotationHighValue    int64   `yaml:"rotation_high_value"`
	} `yaml:"thresholds"`
}

// LoadScoring returns the scoring weights and detector thresholds, starting
// from the built-in defaults and applying overrides from path when set.
// Everything returned is constructed once and treated as immutable.
func LoadScoring(path string) (scoring.Weights, detectors.Thresholds, error) {
	weights := scoring.DefaultWeights()
	thresholds := detectors.DefaultThresholds()
	if path == "" {
		return weights, thresholds, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, detectors.Thresholds{}, fmt.Errorf("read scoring config: %w", err)
	}
	var f scoringFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, detectors.Thresholds{}, fmt.Errorf("parse scoring config: %w", err)
	}

	for name, w := range f.Weights {
		if w <= 0 {
			return nil, detectors.Thresholds{}, fmt.Errorf("scoring config: weight for %q must be positive", name)
		}
		weights[domain.FlagType(name)] = w
	}

	t := f.Thresholds
	if t.SingleBidderMinValue > 0 {
		thresholds.SingleBidderMinValue = decimal.NewFromInt(t.SingleBidderMinValue)
	}
	if t.HighValue > 0 {
		thresholds.HighValue = decimal.NewFromInt(t.HighValue)
	}
	if t.DeadlineP25Days > 0 {
		thresholds.DeadlineP25Days = t.DeadlineP25Days
	}
	if t.DeadlineP10Days > 0 {
		thresholds.DeadlineP10Days = t.DeadlineP10Days
	}
	if t.LowValueCeiling > 0 {
		thresholds.LowValueCeiling = decimal.NewFromInt(t.LowValueCeiling)
	}
	if t.SplitThreshold > 0 {
		thresholds.SplitThreshold = decimal.NewFromInt(t.SplitThreshold)
	}
	if len(t.Statutory) > 0 {
		thresholds.Statutory = make([]decimal.Decimal, len(t.Statutory))
		for i, v := range t.Statutory {
			thresholds.Statutory[i] = decimal.NewFromInt(v)
		}
	}
	if t.RotationHighValue > 0 {
		thresholds.RotationHighValue = decimal.NewFromInt(t.RotationHighValue)
	}
	return weights, thresholds, nil
}
