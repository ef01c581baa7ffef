// Package classify tags ledger rows into movement kinds and deposit
// channels. Classification is pure and recomputed from the ledger on
// every run, so rule changes retroactively reclassify history.
package classify

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Kind is a movement category.
type Kind string

const (
	KindWager      Kind = "wager"
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindPrize      Kind = "prize"
	KindNone       Kind = ""
)

// Channel is the deposit sub-category. Values match the dashboard
// contract verbatim.
type Channel string

const (
	ChannelMODO   Channel = "MODO"
	ChannelRetail Channel = "Retail"
	ChannelOther  Channel = "Otro"
)

// KindRule maps a regexp over normalized movement-type text to a Kind.
// Rules are ordered; the first match wins.
type KindRule struct {
	Pattern string `yaml:"pattern"`
	Kind    Kind   `yaml:"kind"`

	re *regexp.Regexp
}

// ChannelRule maps a regexp over normalized label+type text to a deposit
// channel. Ordered, first match wins; deposits matching no rule land in
// the explicit Otro bucket, never silently in Retail.
type ChannelRule struct {
	Pattern string  `yaml:"pattern"`
	Channel Channel `yaml:"channel"`

	re *regexp.Regexp
}

// RuleSet is the full classification rule table. The business categories
// get re-tuned as channels launch, so deployments override the defaults
// with a YAML file instead of a code change.
type RuleSet struct {
	Kinds    []KindRule    `yaml:"kinds"`
	Channels []ChannelRule `yaml:"channels"`
}

// DefaultRules returns the compiled built-in rule table.
func DefaultRules() *RuleSet {
	rs := &RuleSet{
		Kinds: []KindRule{
			{Pattern: `^carga\s+saldo\s+desde\b`, Kind: KindDeposit},
			{Pattern: `apuesta|jugada`, Kind: KindWager},
			{Pattern: `retiro|transferencia salida`, Kind: KindWithdrawal},
			{Pattern: `premio`, Kind: KindPrize},
		},
		Channels: []ChannelRule{
			{Pattern: `modo`, Channel: ChannelMODO},
			{Pattern: `\btj\b|tarjeta`, Channel: ChannelRetail},
			{Pattern: `agencia|pos|caja`, Channel: ChannelRetail},
		},
	}
	if err := rs.Compile(); err != nil {
		// Built-in patterns are covered by tests; a bad one is a bug.
		panic(err)
	}
	return rs
}

// LoadRules reads and compiles a YAML rule file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}
	if len(rs.Kinds) == 0 {
		return nil, fmt.Errorf("rule file %s defines no kind rules", path)
	}
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Compile builds the regexps for every rule.
func (rs *RuleSet) Compile() error {
	for i := range rs.Kinds {
		re, err := regexp.Compile(rs.Kinds[i].Pattern)
		if err != nil {
			return fmt.Errorf("kind rule %q: %w", rs.Kinds[i].Pattern, err)
		}
		rs.Kinds[i].re = re
	}
	for i := range rs.Channels {
		re, err := regexp.Compile(rs.Channels[i].Pattern)
		if err != nil {
			return fmt.Errorf("channel rule %q: %w", rs.Channels[i].Pattern, err)
		}
		rs.Channels[i].re = re
	}
	return nil
}

// KindOf classifies normalized movement-type text.
func (rs *RuleSet) KindOf(normType string) Kind {
	for _, r := range rs.Kinds {
		if r.re.MatchString(normType) {
			return r.Kind
		}
	}
	return KindNone
}

// ChannelOf classifies a deposit from its normalized label and type.
func (rs *RuleSet) ChannelOf(normLabel, normType string) Channel {
	for _, r := range rs.Channels {
		if r.re.MatchString(normLabel) || r.re.MatchString(normType) {
			return r.Channel
		}
	}
	return ChannelOther
}
