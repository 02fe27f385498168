package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
)

// file mirrors Rules with plain types so viper can decode it. Zero values mean "keep default".
type file struct {
	Elements            []Element         `mapstructure:"elements"`
	StructuralThreshold int               `mapstructure:"structural_threshold"`
	Issuers             []string          `mapstructure:"issuers"`
	FoodSynonyms        map[string]string `mapstructure:"food_synonyms"`
	EcoTrigger          string            `mapstructure:"eco_trigger"`
	PlantTrigger        string            `mapstructure:"plant_trigger"`
	SimilarityFloor     *float64          `mapstructure:"similarity_floor"`
	FoodSuggestionFloor *float64          `mapstructure:"food_suggestion_floor"`
	DefaultFloor        string            `mapstructure:"default_floor"`
	EcoThreshold        string            `mapstructure:"eco_threshold"`
	LimitTolerance      string            `mapstructure:"limit_tolerance"`
	MinTextLength       *int              `mapstructure:"min_text_length"`
}

// Load overlays a YAML, JSON or TOML rules file onto Default. An empty path returns Default.
func Load(path string) (Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Rules{}, common.NewAppError(common.CodeConfig, "read rules file "+path, err)
	}
	var f file
	if err := v.Unmarshal(&f); err != nil {
		return Rules{}, common.NewAppError(common.CodeConfig, "decode rules file "+path, err)
	}

	if len(f.Elements) > 0 {
		r.Elements = f.Elements
	}
	if f.StructuralThreshold > 0 {
		r.StructuralThreshold = f.StructuralThreshold
	}
	if len(f.Issuers) > 0 {
		r.Issuers = f.Issuers
	}
	for k, val := range f.FoodSynonyms {
		r.FoodSynonyms[k] = val
	}
	if f.EcoTrigger != "" {
		r.EcoTrigger = f.EcoTrigger
	}
	if f.PlantTrigger != "" {
		r.PlantTrigger = f.PlantTrigger
	}
	if f.SimilarityFloor != nil {
		r.SimilarityFloor = *f.SimilarityFloor
	}
	if f.FoodSuggestionFloor != nil {
		r.FoodSuggestionFloor = *f.FoodSuggestionFloor
	}
	if f.MinTextLength != nil {
		r.MinTextLength = *f.MinTextLength
	}
	for _, d := range []struct {
		raw  string
		name string
		dst  *decimal.Decimal
	}{
		{f.DefaultFloor, "default_floor", &r.DefaultFloor},
		{f.EcoThreshold, "eco_threshold", &r.EcoThreshold},
		{f.LimitTolerance, "limit_tolerance", &r.LimitTolerance},
	} {
		if d.raw == "" {
			continue
		}
		val, err := decimal.NewFromString(d.raw)
		if err != nil {
			return Rules{}, common.NewAppError(common.CodeConfig, fmt.Sprintf("%s: %q is not a decimal", d.name, d.raw), err)
		}
		*d.dst = val
	}

	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate checks struct constraints plus cross-field ones.
func (r Rules) Validate() error {
	if err := common.ValidateStruct(r); err != nil {
		return err
	}
	if r.StructuralThreshold > len(r.Elements) {
		return common.NewAppError(common.CodeConfig,
			fmt.Sprintf("structural_threshold %d exceeds %d elements", r.StructuralThreshold, len(r.Elements)),
			common.ErrValidation)
	}
	if !r.DefaultFloor.IsPositive() || !r.EcoThreshold.IsPositive() || r.LimitTolerance.IsNegative() {
		return common.NewAppError(common.CodeConfig, "floors must be positive", common.ErrValidation)
	}
	return nil
}
