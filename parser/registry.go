// Package parser turns raw source responses into candidate listings.
// Every source id maps to one Adapter in a Registry.
package parser

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"hestia/models"
)

// ErrUnknownSource is returned when no adapter is registered for a source id
var ErrUnknownSource = errors.New("unknown source")

// UnknownSourceError names the source id that could not be resolved
type UnknownSourceError struct {
	ID     string
	Reason string
}

func (e *UnknownSourceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("parser: unknown source %q: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("parser: unknown source %q", e.ID)
}

func (e *UnknownSourceError) Unwrap() error {
	return ErrUnknownSource
}

// Adapter parses one source's response body. It returns an error only when the
// body as a whole cannot be decoded; unusable records are skipped.
type Adapter interface {
	Parse(body []byte) ([]models.Listing, error)
}

// AdapterFunc lets a plain function act as an Adapter
type AdapterFunc func(body []byte) ([]models.Listing, error)

// Parse calls f(body)
func (f AdapterFunc) Parse(body []byte) ([]models.Listing, error) {
	return f(body)
}

// FamilyFunc builds the adapter for one member of a white-labelled source
// network, given the id suffix after the family prefix
type FamilyFunc func(suffix string) (Adapter, error)

// Registry maps source ids to adapters
type Registry struct {
	adapters map[string]Adapter
	families map[string]FamilyFunc
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		families: make(map[string]FamilyFunc),
	}
}

// Register binds an adapter to an exact source id
func (r *Registry) Register(id string, a Adapter) {
	r.adapters[id] = a
}

// RegisterPrefix binds a family of source ids sharing a prefix, such as "hexia_"
func (r *Registry) RegisterPrefix(prefix string, f FamilyFunc) {
	r.families[prefix] = f
}

// Lookup resolves the adapter for a source id. Exact ids win over families.
func (r *Registry) Lookup(id string) (Adapter, error) {
	if a, ok := r.adapters[id]; ok {
		return a, nil
	}
	for prefix, build := range r.families {
		suffix, ok := strings.CutPrefix(id, prefix)
		if !ok || suffix == "" {
			continue
		}
		a, err := build(suffix)
		if err != nil {
			return nil, &UnknownSourceError{ID: id, Reason: err.Error()}
		}
		return a, nil
	}
	return nil, &UnknownSourceError{ID: id}
}

// Parse runs the adapter for id on body. The listings are tagged with the
// source id and deduplicated within the batch.
func (r *Registry) Parse(id string, body []byte) ([]models.Listing, error) {
	a, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	listings, err := a.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", id, err)
	}
	for i := range listings {
		listings[i].Source = id
	}
	return Dedup(listings), nil
}

// Sources lists the exact ids and family prefixes the registry knows
func (r *Registry) Sources() []string {
	ids := make([]string, 0, len(r.adapters)+len(r.families))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	for prefix := range r.families {
		ids = append(ids, prefix+"*")
	}
	sort.Strings(ids)
	return ids
}

// Default returns a registry with every supported source
func Default() *Registry {
	r := NewRegistry()

	r.RegisterPrefix("hexia_", newHexiaAdapter)
	r.RegisterPrefix("woningnet_", newWoningnetAdapter)

	r.Register("woonnet_rijnmond", AdapterFunc(parseWoonnetRijnmond))
	r.Register("woonin", AdapterFunc(parseWoonin))
	r.Register("vesteda", AdapterFunc(parseVesteda))
	r.Register("vbt", AdapterFunc(parseVBT))
	r.Register("alliantie", AdapterFunc(parseAlliantie))
	r.Register("bouwinvest", AdapterFunc(parseBouwinvest))
	r.Register("krk", AdapterFunc(parseKRK))
	r.Register("funda", AdapterFunc(parseFunda))
	r.Register("rebo", AdapterFunc(parseRebo))
	r.Register("ooms", AdapterFunc(parseOoms))
	r.Register("entree", AdapterFunc(parseEntree))
	r.Register("123wonen", AdapterFunc(parse123Wonen))
	r.Register("hoekstra", AdapterFunc(parseHoekstra))

	r.Register("pararius", AdapterFunc(parsePararius))
	r.Register("nmg", AdapterFunc(parseNMG))
	r.Register("vbo", AdapterFunc(parseVBO))
	r.Register("atta", AdapterFunc(parseAtta))
	r.Register("vanderlinden", AdapterFunc(parseVanderLinden))
	r.Register("wooove", AdapterFunc(parseWooove))

	r.Register("woonmatchwaterland", AdapterFunc(parseWoonmatchWaterland))
	r.Register("woonzeker", AdapterFunc(parseWoonzeker))
	r.Register("roofz", AdapterFunc(parseRoofz))

	return r
}
