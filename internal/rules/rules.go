// Package rules loads adjudication rule sets from YAML files.
//
// A file names a preset and overrides individual options:
//
//	preset: dptg
//	convoy_paradox: szykman
//	accept_illegal: true
//
// Option values use the names printed by the option types in
// pkg/diplomacy. Unknown keys and unknown values are load errors.
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/polite-betrayal/judge/pkg/diplomacy"
)

// File is the on-disk form of a rule set. Nil fields keep the preset's
// value.
type File struct {
	Preset string `yaml:"preset,omitempty"`

	ConvoyDisruption      *diplomacy.ConvoyDisruption `yaml:"convoy_disruption"`
	ConvoyParadox         *diplomacy.ConvoyParadox    `yaml:"convoy_paradox"`
	AdjacentConvoy        *diplomacy.AdjacentConvoy   `yaml:"adjacent_convoy"`
	RetreatToConvoyOrigin *bool                       `yaml:"retreat_to_convoy_origin"`
	ConvoyPath            *diplomacy.ConvoyPath       `yaml:"convoy_path"`
	PreferOwnConvoy       *bool                       `yaml:"prefer_own_convoy"`
	AmbiguousCoast        *diplomacy.CoastPolicy      `yaml:"ambiguous_coast"`
	StrictSupportCoast    *bool                       `yaml:"strict_support_coast"`
	DuplicateOrders       *diplomacy.Precedence       `yaml:"duplicate_orders"`
	TooManyBuilds         *diplomacy.Precedence       `yaml:"too_many_builds"`
	MultipleBuildsOneArea *diplomacy.Precedence       `yaml:"multiple_builds"`
	TooManyRemovals       *diplomacy.Precedence       `yaml:"too_many_removals"`
	IllegalOrders         *diplomacy.IllegalOrders    `yaml:"illegal_orders"`
	AcceptIllegal         *bool                       `yaml:"accept_illegal"`
}

// Rules applies the overrides to the named preset.
func (f File) Rules() (diplomacy.Rules, error) {
	r, err := diplomacy.RulesPreset(strings.ToLower(strings.TrimSpace(f.Preset)))
	if err != nil {
		return diplomacy.Rules{}, err
	}
	set(&r.ConvoyDisruption, f.ConvoyDisruption)
	set(&r.ConvoyParadox, f.ConvoyParadox)
	set(&r.AdjacentConvoy, f.AdjacentConvoy)
	set(&r.RetreatToConvoyOrigin, f.RetreatToConvoyOrigin)
	set(&r.ConvoyPath, f.ConvoyPath)
	set(&r.PreferOwnConvoy, f.PreferOwnConvoy)
	set(&r.AmbiguousCoast, f.AmbiguousCoast)
	set(&r.StrictSupportCoast, f.StrictSupportCoast)
	set(&r.DuplicateOrders, f.DuplicateOrders)
	set(&r.TooManyBuilds, f.TooManyBuilds)
	set(&r.MultipleBuildsOneArea, f.MultipleBuildsOneArea)
	set(&r.TooManyRemovals, f.TooManyRemovals)
	set(&r.IllegalOrders, f.IllegalOrders)
	set(&r.AcceptIllegal, f.AcceptIllegal)
	if err := r.Validate(); err != nil {
		return diplomacy.Rules{}, err
	}
	return r, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Parse decodes a YAML rule set. An empty document selects the DATC
// preset.
func Parse(data []byte) (diplomacy.Rules, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return diplomacy.Rules{}, fmt.Errorf("rules: decode: %w", err)
	}
	r, err := f.Rules()
	if err != nil {
		return diplomacy.Rules{}, fmt.Errorf("rules: %w", err)
	}
	return r, nil
}

// Load reads a rule set from path. An empty path selects the DATC preset.
func Load(path string) (diplomacy.Rules, error) {
	if strings.TrimSpace(path) == "" {
		return diplomacy.DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return diplomacy.Rules{}, fmt.Errorf("rules: read %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return diplomacy.Rules{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Marshal renders a rule set as a complete YAML file with no preset, so
// that every option is explicit.
func Marshal(r diplomacy.Rules) ([]byte, error) {
	f := File{
		ConvoyDisruption:      &r.ConvoyDisruption,
		ConvoyParadox:         &r.ConvoyParadox,
		AdjacentConvoy:        &r.AdjacentConvoy,
		RetreatToConvoyOrigin: &r.RetreatToConvoyOrigin,
		ConvoyPath:            &r.ConvoyPath,
		PreferOwnConvoy:       &r.PreferOwnConvoy,
		AmbiguousCoast:        &r.AmbiguousCoast,
		StrictSupportCoast:    &r.StrictSupportCoast,
		DuplicateOrders:       &r.DuplicateOrders,
		TooManyBuilds:         &r.TooManyBuilds,
		MultipleBuildsOneArea: &r.MultipleBuildsOneArea,
		TooManyRemovals:       &r.TooManyRemovals,
		IllegalOrders:         &r.IllegalOrders,
		AcceptIllegal:         &r.AcceptIllegal,
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("rules: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("rules: encode: %w", err)
	}
	return buf.Bytes(), nil
}
