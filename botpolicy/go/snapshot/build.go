package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"

	"go.skia.org/fleet/botpolicy/go/config"
	"go.skia.org/fleet/botpolicy/go/schedule"
)

// Build validates the given configuration and produces a Snapshot.
//
// Validation collects every violation rather than stopping at the first, so
// that an administrator fixing the configuration sees all problems in one
// pass; the returned error is a multierror listing each one. The input is
// never mutated and no reference to it is retained.
func Build(cfg *config.Config) (*Snapshot, error) {
	var errs *multierror.Error
	report := func(format string, args ...interface{}) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	cp := cfg.Copy()
	s := &Snapshot{
		revision:     uuid.New().String(),
		cfg:          cp,
		byBotID:      map[string]*config.BotGroup{},
		machineTypes: map[string]MachineTypeEntry{},
	}

	for _, dim := range cp.TrustedDimensions {
		if dim == "" {
			report("trusted_dimensions: empty dimension key")
		} else if strings.Contains(dim, ":") {
			report("trusted_dimensions: %q must be a bare dimension key, not a \"key:value\" pair", dim)
		}
	}

	// ownerOfBotID tracks which group first claimed each expanded literal
	// ID, for duplicate reporting.
	ownerOfBotID := map[string]int{}
	defaultGroups := []int{}
	// machineTypeOwner tracks which group first claimed each machine type
	// name.
	machineTypeOwner := map[string]int{}

	for gi := range cp.BotGroup {
		g := &cp.BotGroup[gi]
		scope := fmt.Sprintf("bot_group #%d", gi+1)

		validateAuth(g, scope, report)
		validateDimensions(g.Dimensions, scope+": dimensions", report)

		for _, id := range g.BotID {
			expanded, err := expandBotID(id)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", scope, err))
				continue
			}
			for _, botID := range expanded {
				if prev, ok := ownerOfBotID[botID]; ok {
					if prev == gi {
						report("%s: bot_id %q is listed more than once", scope, botID)
					} else {
						report("%s: bot_id %q also belongs to bot_group #%d", scope, botID, prev+1)
					}
					continue
				}
				ownerOfBotID[botID] = gi
				s.byBotID[botID] = g
			}
		}

		for _, prefix := range g.BotIDPrefix {
			if prefix == "" {
				report("%s: empty bot_id_prefix", scope)
				continue
			}
			s.prefixes = append(s.prefixes, prefixEntry{
				prefix: prefix,
				group:  g,
			})
		}

		for mi := range g.MachineType {
			mt := &g.MachineType[mi]
			mtScope := fmt.Sprintf("%s: machine_type #%d", scope, mi+1)
			validateMachineType(mt, mtScope, report)
			if mt.Name == "" {
				continue
			}
			if prev, ok := machineTypeOwner[mt.Name]; ok {
				report("%s: machine_type name %q is already used by bot_group #%d", mtScope, mt.Name, prev+1)
				continue
			}
			machineTypeOwner[mt.Name] = gi
			s.machineTypes[mt.Name] = MachineTypeEntry{
				MachineType: mt,
				Group:       g,
			}
		}

		if g.IsDefaultGroup() {
			defaultGroups = append(defaultGroups, gi)
		}
	}

	if len(defaultGroups) > 1 {
		scopes := make([]string, 0, len(defaultGroups))
		for _, gi := range defaultGroups {
			scopes = append(scopes, fmt.Sprintf("#%d", gi+1))
		}
		report("multiple default groups: bot_groups %s all have no bot_id, bot_id_prefix, or machine_type", strings.Join(scopes, ", "))
	} else if len(defaultGroups) == 1 {
		s.defaultGroup = &cp.BotGroup[defaultGroups[0]]
	}

	validatePrefixes(s.prefixes, report)
	sortPrefixes(s.prefixes)

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

// validateAuth checks the auth block of a single group.
func validateAuth(g *config.BotGroup, scope string, report func(string, ...interface{})) {
	if g.Auth == nil {
		report("%s: auth is required", scope)
	} else {
		if g.Auth.RequireLUCIMachineToken && g.Auth.RequireServiceAccount != "" {
			report("%s: auth.require_luci_machine_token and auth.require_service_account are mutually exclusive", scope)
		}
		if !g.Auth.RequireLUCIMachineToken && g.Auth.RequireServiceAccount == "" && g.Auth.IPWhitelist == "" {
			report("%s: auth must set require_luci_machine_token, require_service_account, or ip_whitelist", scope)
		}
	}

	switch g.SystemServiceAccount {
	case "":
		// No system service account.
	case config.SystemServiceAccountBot:
		// The "bot" sentinel reuses the bot's own OAuth token, which only
		// exists when the group authenticates via a service account.
		if g.Auth == nil || g.Auth.RequireServiceAccount == "" {
			report("%s: system_service_account \"bot\" requires auth.require_service_account", scope)
		}
	default:
		if !isServiceAccountEmail(g.SystemServiceAccount) {
			report("%s: system_service_account %q is not a service account email", scope, g.SystemServiceAccount)
		}
	}
}

// isServiceAccountEmail reports whether s looks like
// <name>@<project>.iam.gserviceaccount.com.
func isServiceAccountEmail(s string) bool {
	name, domain, ok := strings.Cut(s, "@")
	if !ok || name == "" {
		return false
	}
	project, found := strings.CutSuffix(domain, ".iam.gserviceaccount.com")
	return found && project != "" && !strings.Contains(project, ".")
}

// validateDimensions checks a list of "key:value" dimension strings.
func validateDimensions(dims []string, scope string, report func(string, ...interface{})) {
	for _, pair := range dims {
		key, value, ok := strings.Cut(pair, ":")
		if !ok || key == "" || value == "" {
			report("%s: %q is not a \"key:value\" pair", scope, pair)
		}
	}
}

// validateMachineType checks a single machine type, including its schedule.
func validateMachineType(mt *config.MachineType, scope string, report func(string, ...interface{})) {
	if mt.Name == "" {
		report("%s: name is required", scope)
	}
	if mt.TargetSize < 0 {
		report("%s: target_size must not be negative", scope)
	}
	if mt.LeaseDurationSecs < 0 {
		report("%s: lease_duration_secs must not be negative", scope)
	}
	if mt.EarlyReleaseSecs < 0 {
		report("%s: early_release_secs must not be negative", scope)
	}
	if mt.LeaseDurationSecs > 0 && mt.EarlyReleaseSecs >= mt.LeaseDurationSecs {
		report("%s: early_release_secs must be smaller than lease_duration_secs", scope)
	}
	validateDimensions(mt.MPDimensions, scope+": mp_dimensions", report)
	if mt.Schedule == nil {
		return
	}
	for di, d := range mt.Schedule.Daily {
		dScope := fmt.Sprintf("%s: schedule.daily #%d", scope, di+1)
		start, startErr := schedule.ParseTimeOfDay(d.Start)
		if startErr != nil {
			report("%s: start: %s", dScope, startErr)
		}
		end, endErr := schedule.ParseTimeOfDay(d.End)
		if endErr != nil {
			report("%s: end: %s", dScope, endErr)
		}
		if startErr == nil && endErr == nil && start >= end {
			report("%s: start %q is not before end %q", dScope, d.Start, d.End)
		}
		for _, day := range d.DaysOfTheWeek {
			if day < 0 || day > 6 {
				report("%s: days_of_the_week value %d is outside 0 (Mon) - 6 (Sun)", dScope, day)
			}
		}
		if d.TargetSize < 0 {
			report("%s: target_size must not be negative", dScope)
		}
	}
	for li, lb := range mt.Schedule.LoadBased {
		lScope := fmt.Sprintf("%s: schedule.load_based #%d", scope, li+1)
		if lb.MinimumSize < 0 {
			report("%s: minimum_size must not be negative", lScope)
		}
		if lb.MaximumSize < 0 {
			report("%s: maximum_size must not be negative", lScope)
		}
		if lb.MinimumSize > lb.MaximumSize {
			report("%s: minimum_size %d is larger than maximum_size %d", lScope, lb.MinimumSize, lb.MaximumSize)
		}
	}
}

// validatePrefixes reports every pair of intersecting prefixes across the
// whole configuration. Two prefixes intersect when one is a prefix of the
// other (including being equal); such a pair would make resolution of some
// bot ID ambiguous.
func validatePrefixes(prefixes []prefixEntry, report func(string, ...interface{})) {
	for i := 0; i < len(prefixes); i++ {
		for j := i + 1; j < len(prefixes); j++ {
			a, b := prefixes[i].prefix, prefixes[j].prefix
			if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
				report("bot_id_prefix %q and %q intersect; all prefixes must be pairwise non-intersecting", a, b)
			}
		}
	}
}

// sortPrefixes orders the prefix index longest-first, ties broken
// lexicographically, so lookups are deterministic.
func sortPrefixes(prefixes []prefixEntry) {
	sortFn := func(i, j int) bool {
		if len(prefixes[i].prefix) != len(prefixes[j].prefix) {
			return len(prefixes[i].prefix) > len(prefixes[j].prefix)
		}
		return prefixes[i].prefix < prefixes[j].prefix
	}
	sort.Slice(prefixes, sortFn)
}
