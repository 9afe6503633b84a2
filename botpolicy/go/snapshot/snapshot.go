// Package snapshot validates the declarative bot configuration and turns it
// into an immutable, queryable snapshot.
//
// A Snapshot is built once from a raw config.Config and never modified
// afterwards, so arbitrarily many bot connections may resolve against it
// concurrently with no locking. The Tracker owns the active snapshot and
// swaps in a replacement atomically whenever a new configuration validates
// successfully; a failed validation leaves the previous snapshot in place.
package snapshot

import (
	"sort"
	"strings"

	"go.skia.org/fleet/botpolicy/go/config"
	"go.skia.org/fleet/go/util"
)

// MachineTypeEntry pairs a machine type with the bot group that owns it.
type MachineTypeEntry struct {
	MachineType *config.MachineType
	Group       *config.BotGroup
}

// prefixEntry is one (bot_id_prefix, group) pair of the prefix index.
type prefixEntry struct {
	prefix string
	group  *config.BotGroup
}

// Snapshot is a validated, immutable view of a configuration with the
// derived indexes needed for O(1) bot group resolution.
type Snapshot struct {
	revision     string
	cfg          *config.Config
	byBotID      map[string]*config.BotGroup
	prefixes     []prefixEntry
	defaultGroup *config.BotGroup
	machineTypes map[string]MachineTypeEntry
}

// Revision identifies this snapshot in logs. It changes on every rebuild,
// even if the underlying configuration did not.
func (s *Snapshot) Revision() string {
	return s.revision
}

// ResolveBotGroup returns the single group the given bot belongs to, or
// false if the bot matches no group and must be refused service.
//
// Literal IDs win over prefixes, prefixes win over the default group.
// Validation guarantees prefixes never intersect, so at most one can match;
// the prefix index is kept longest-first anyway so that resolution stays
// deterministic even against a snapshot whose validation was bypassed.
func (s *Snapshot) ResolveBotGroup(botID string) (*config.BotGroup, bool) {
	if g, ok := s.byBotID[botID]; ok {
		return g, true
	}
	for _, pe := range s.prefixes {
		if strings.HasPrefix(botID, pe.prefix) {
			return pe.group, true
		}
	}
	if s.defaultGroup != nil {
		return s.defaultGroup, true
	}
	return nil, false
}

// MachineType returns the machine type with the given name and the group
// that owns it.
func (s *Snapshot) MachineType(name string) (MachineTypeEntry, bool) {
	e, ok := s.machineTypes[name]
	return e, ok
}

// MachineTypes returns all machine types in the configuration, sorted by
// name.
func (s *Snapshot) MachineTypes() []MachineTypeEntry {
	ret := make([]MachineTypeEntry, 0, len(s.machineTypes))
	for _, e := range s.machineTypes {
		ret = append(ret, e)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].MachineType.Name < ret[j].MachineType.Name
	})
	return ret
}

// TrustedDimensions returns the dimension keys that only the server may
// assign, sorted.
func (s *Snapshot) TrustedDimensions() []string {
	ret := util.NewStringSet(s.cfg.TrustedDimensions).Keys()
	sort.Strings(ret)
	return ret
}

// DimensionsFor returns the server-assigned dimensions of bots in the given
// group as a key to sorted-values map. These are merged from the group's
// "key:value" dimension strings; a bot may report additional dimensions of
// its own, but never for a trusted key.
func (s *Snapshot) DimensionsFor(g *config.BotGroup) map[string][]string {
	ret := map[string][]string{}
	for _, pair := range g.Dimensions {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			// Validation rejects pairs without a colon.
			continue
		}
		if !util.In(value, ret[key]) {
			ret[key] = append(ret[key], value)
		}
	}
	for key := range ret {
		sort.Strings(ret[key])
	}
	return ret
}
