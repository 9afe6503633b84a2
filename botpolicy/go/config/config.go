// Package config contains the declarative bot-group and machine-type
// configuration.
//
// The configuration describes which policy group governs each bot that
// connects to the scheduler: how the bot must authenticate, which dimensions
// it is trusted to report, and which leased-machine pools belong to the
// group. The structs here are a plain in-memory representation of the config
// document; all validation lives in the snapshot package.
//
// Field names are part of the wire format and must not change; existing
// deployments serve documents using exactly these names.
package config

import (
	"io"

	"github.com/flynn/json5"

	"go.skia.org/fleet/go/skerr"
	"go.skia.org/fleet/go/util"
)

// SystemServiceAccountBot is the sentinel value of
// BotGroup.SystemServiceAccount that directs the server to use the bot's own
// OAuth token as the system service account. Only valid for groups
// authenticated via RequireServiceAccount.
const SystemServiceAccountBot = "bot"

// Config is the root of the declarative configuration.
type Config struct {
	// TrustedDimensions is the set of dimension keys that are assigned by
	// the server and may never be self-reported by a bot, e.g. "pool".
	TrustedDimensions []string `json:"trusted_dimensions"`

	// BotGroup is the ordered list of bot groups. Order matters for
	// deterministic schedule evaluation, not for bot resolution.
	BotGroup []BotGroup `json:"bot_group"`
}

// BotGroup is a policy bucket of bots sharing an authentication method,
// dimensions, and ownership.
//
// Membership is given by BotID and BotIDPrefix. A group with no BotID, no
// BotIDPrefix, and no MachineType is the default group, matching any bot not
// claimed by another group; at most one default group may exist.
type BotGroup struct {
	// BotID lists literal bot IDs belonging to this group. Each entry may
	// contain at most one brace expansion, e.g. "vm{1..10}-m1" or
	// "vm{100,150,200}-m1".
	BotID []string `json:"bot_id"`

	// BotIDPrefix lists bot ID prefixes belonging to this group. Prefixes
	// must not intersect with prefixes of any other group.
	BotIDPrefix []string `json:"bot_id_prefix"`

	// MachineType lists the leased-machine pools owned by this group. This
	// is a group property, not a membership rule: a bot is never resolved
	// to a group through its machine type.
	MachineType []MachineType `json:"machine_type"`

	// Auth describes how bots in this group must authenticate. Required.
	Auth *BotAuth `json:"auth"`

	// Owners lists email addresses of people responsible for the bots in
	// this group. Informational only.
	Owners []string `json:"owners"`

	// Dimensions lists "key:value" dimensions assigned by the server to
	// all bots in this group, merged with TrustedDimensions-keyed values
	// at resolution time.
	Dimensions []string `json:"dimensions"`

	// BotConfigScript is an opaque payload handed to bots in this group.
	// Not interpreted by the server.
	BotConfigScript string `json:"bot_config_script"`

	// SystemServiceAccount is the service account bots in this group use
	// when calling system-level services. Either unset, a service account
	// email, or the literal "bot".
	SystemServiceAccount string `json:"system_service_account"`
}

// IsDefaultGroup returns true if the group has no membership rules and no
// machine types, making it the catch-all group.
func (g *BotGroup) IsDefaultGroup() bool {
	return len(g.BotID) == 0 && len(g.BotIDPrefix) == 0 && len(g.MachineType) == 0
}

// BotAuth describes the authentication requirements of a bot group.
//
// Exactly one of RequireLUCIMachineToken and RequireServiceAccount may be
// set. IPWhitelist is orthogonal: if set it is ANDed with whichever primary
// mode is active, and may also be used alone.
type BotAuth struct {
	// RequireLUCIMachineToken requires bots to present a LUCI machine
	// token whose hostname matches the bot ID.
	RequireLUCIMachineToken bool `json:"require_luci_machine_token"`

	// RequireServiceAccount requires bots to authenticate with OAuth
	// tokens of exactly this service account.
	RequireServiceAccount string `json:"require_service_account"`

	// IPWhitelist is the name of an externally maintained IP allow-list
	// the bot's source IP must belong to.
	IPWhitelist string `json:"ip_whitelist"`
}

// MachineType describes a pool of leased machines.
type MachineType struct {
	// Name of the machine type. Unique across the whole configuration.
	Name string `json:"name"`

	// Description is human readable.
	Description string `json:"description"`

	// EarlyReleaseSecs is how many seconds before lease expiry an idle
	// machine may be released back to the provider.
	EarlyReleaseSecs int64 `json:"early_release_secs"`

	// LeaseDurationSecs is how long each machine is leased for.
	LeaseDurationSecs int64 `json:"lease_duration_secs"`

	// MPDimensions lists "key:value" dimensions requested from the
	// machine provider when leasing machines of this type.
	MPDimensions []string `json:"mp_dimensions"`

	// TargetSize is the baseline number of machines to keep leased when
	// no schedule entry applies.
	TargetSize int `json:"target_size"`

	// Schedule optionally varies the target size by time of day and load.
	Schedule *Schedule `json:"schedule"`
}

// Schedule varies the desired size of a machine type. Daily and LoadBased
// are both optional and independently applicable.
type Schedule struct {
	// Daily lists time-of-day windows with their own target sizes. If
	// windows overlap, the entry appearing first wins.
	Daily []DailySchedule `json:"daily"`

	// LoadBased bounds the target size based on observed utilization.
	LoadBased []LoadBased `json:"load_based"`
}

// DailySchedule is a same-day UTC wall-clock window with a target size.
type DailySchedule struct {
	// Start of the window, "HH:MM" UTC. Inclusive.
	Start string `json:"start"`

	// End of the window, "HH:MM" UTC. Exclusive, and must be after Start
	// within the same day; windows never wrap around midnight.
	End string `json:"end"`

	// DaysOfTheWeek lists the days the window applies to, 0 (Monday)
	// through 6 (Sunday).
	DaysOfTheWeek []int `json:"days_of_the_week"`

	// TargetSize is the number of machines to keep leased while the
	// window is active.
	TargetSize int `json:"target_size"`
}

// LoadBased bounds the utilization-driven target size of a machine type.
type LoadBased struct {
	// MinimumSize is the smallest allowed target size.
	MinimumSize int `json:"minimum_size"`

	// MaximumSize is the largest allowed target size.
	MaximumSize int `json:"maximum_size"`
}

// Copy returns a deep copy of the Config.
func (c *Config) Copy() *Config {
	ret := &Config{
		TrustedDimensions: util.CopyStringSlice(c.TrustedDimensions),
	}
	if c.BotGroup != nil {
		ret.BotGroup = make([]BotGroup, 0, len(c.BotGroup))
		for _, g := range c.BotGroup {
			ret.BotGroup = append(ret.BotGroup, *g.Copy())
		}
	}
	return ret
}

// Copy returns a deep copy of the BotGroup.
func (g *BotGroup) Copy() *BotGroup {
	ret := &BotGroup{
		BotID:                util.CopyStringSlice(g.BotID),
		BotIDPrefix:          util.CopyStringSlice(g.BotIDPrefix),
		Owners:               util.CopyStringSlice(g.Owners),
		Dimensions:           util.CopyStringSlice(g.Dimensions),
		BotConfigScript:      g.BotConfigScript,
		SystemServiceAccount: g.SystemServiceAccount,
	}
	if g.Auth != nil {
		auth := *g.Auth
		ret.Auth = &auth
	}
	if g.MachineType != nil {
		ret.MachineType = make([]MachineType, 0, len(g.MachineType))
		for _, mt := range g.MachineType {
			ret.MachineType = append(ret.MachineType, *mt.Copy())
		}
	}
	return ret
}

// Copy returns a deep copy of the MachineType.
func (mt *MachineType) Copy() *MachineType {
	ret := &MachineType{
		Name:              mt.Name,
		Description:       mt.Description,
		EarlyReleaseSecs:  mt.EarlyReleaseSecs,
		LeaseDurationSecs: mt.LeaseDurationSecs,
		MPDimensions:      util.CopyStringSlice(mt.MPDimensions),
		TargetSize:        mt.TargetSize,
	}
	if mt.Schedule != nil {
		sched := &Schedule{}
		if mt.Schedule.Daily != nil {
			sched.Daily = make([]DailySchedule, len(mt.Schedule.Daily))
			for i, d := range mt.Schedule.Daily {
				d.DaysOfTheWeek = append([]int(nil), d.DaysOfTheWeek...)
				sched.Daily[i] = d
			}
		}
		if mt.Schedule.LoadBased != nil {
			sched.LoadBased = append([]LoadBased(nil), mt.Schedule.LoadBased...)
		}
		ret.Schedule = sched
	}
	return ret
}

// LoadFromJSON5 reads the configuration document at the given path. The
// returned Config has not been validated.
func LoadFromJSON5(path string) (*Config, error) {
	var ret Config
	err := util.WithReadFile(path, func(r io.Reader) error {
		return json5.NewDecoder(r).Decode(&ret)
	})
	if err != nil {
		return nil, skerr.Wrapf(err, "reading bot config at %s", path)
	}
	return &ret, nil
}
