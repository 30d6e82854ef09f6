package gen

import (
	"fmt"
	"strings"
)

var (
	// FeatureEvents generates the lifecycle event union of an entity.
	FeatureEvents = Feature{
		Name:        "events",
		Stage:       Stable,
		Default:     false,
		Description: "Events generates a sealed lifecycle event type per entity (created, updated, deleted, restored)",
	}

	// FeatureHooks generates before/after hooks and a hooked repository.
	FeatureHooks = Feature{
		Name:        "hooks",
		Stage:       Beta,
		Default:     false,
		Description: "Hooks generates a hooks interface, a no-op implementation and a repository decorator calling them",
	}

	// FeatureCommands generates CQRS command payloads, a handler interface
	// and a dispatcher.
	FeatureCommands = Feature{
		Name:        "commands",
		Stage:       Beta,
		Default:     false,
		Description: "Commands generates CQRS command payloads, results, a handler interface and a dispatcher",
	}

	// FeaturePolicy generates an authorization policy and a repository
	// decorator enforcing it.
	FeaturePolicy = Feature{
		Name:        "policy",
		Stage:       Beta,
		Default:     false,
		Description: "Policy generates an authorization policy interface, an explicit allow-all policy and an enforcing repository",
	}

	// FeatureStreams generates LISTEN/NOTIFY publishing and a typed
	// subscriber. It implies FeatureEvents.
	FeatureStreams = Feature{
		Name:        "streams",
		Stage:       Alpha,
		Default:     false,
		Description: "Streams publishes entity events with pg_notify and generates a typed subscriber",
		requires:    []string{"events"},
	}

	// FeatureTransactions generates a repository bound to a transaction.
	FeatureTransactions = Feature{
		Name:        "transactions",
		Stage:       Beta,
		Default:     false,
		Description: "Transactions generates a repository bound to a *sql.Tx and a helper running a function in a transaction",
	}

	// FeatureMigrations generates the DDL of the entity table.
	FeatureMigrations = Feature{
		Name:        "migrations",
		Stage:       Stable,
		Default:     false,
		Description: "Migrations generates CREATE/DROP TABLE constants and, when a migration directory is configured, versioned SQL files",
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureEvents,
		FeatureHooks,
		FeatureCommands,
		FeaturePolicy,
		FeatureStreams,
		FeatureTransactions,
		FeatureMigrations,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development and may change or go away.
	Experimental

	// Alpha features are complete but their generated API may still change.
	Alpha

	// Beta features are documented and no breaking changes are expected.
	Beta

	// Stable features have been in use for a while.
	Stable
)

// String returns the lower-case stage name.
func (s FeatureStage) String() string {
	switch s {
	case Experimental:
		return "experimental"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case Stable:
		return "stable"
	default:
		return fmt.Sprintf("FeatureStage(%d)", int(s))
	}
}

// A Feature of the entgen codegen. Every feature is also an entity
// attribute of the same name, which overrides the global setting.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string

	// requires lists features implied by this one.
	requires []string
}

// Requires returns the names of the features implied by f.
func (f Feature) Requires() []string {
	return f.requires
}

// FeatureByName returns the feature with the given name. Matching ignores
// case and surrounding spaces.
func FeatureByName(name string) (Feature, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// ParseFeatures resolves a list of feature names, as given on the command
// line or in a project file.
func ParseFeatures(names ...string) ([]Feature, error) {
	fs := make([]Feature, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, ok := FeatureByName(n)
		if !ok {
			return nil, NewConfigError("Features", n, "unknown feature")
		}
		fs = append(fs, f)
	}
	return fs, nil
}

// featureSet is the resolved set of enabled features of one entity.
type featureSet map[string]bool

// resolveFeatures computes the features of an entity: defaults, then the
// global configuration, then the entity attributes. Implied features are
// switched on last.
func resolveFeatures(global []Feature, overrides map[string]bool) featureSet {
	fs := make(featureSet, len(AllFeatures))
	for _, f := range AllFeatures {
		fs[f.Name] = f.Default
	}
	for _, f := range global {
		fs[f.Name] = true
	}
	for name, on := range overrides {
		fs[name] = on
	}
	for _, f := range AllFeatures {
		if !fs[f.Name] {
			continue
		}
		for _, r := range f.requires {
			fs[r] = true
		}
	}
	return fs
}

// names returns the enabled features in AllFeatures order.
func (fs featureSet) names() []string {
	var out []string
	for _, f := range AllFeatures {
		if fs[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}
