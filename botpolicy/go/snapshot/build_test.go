package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.skia.org/fleet/botpolicy/go/config"
)

// validGroup returns a minimal valid group claiming the given prefix.
func validGroup(prefix string) config.BotGroup {
	return config.BotGroup{
		BotIDPrefix: []string{prefix},
		Auth: &config.BotAuth{
			RequireLUCIMachineToken: true,
		},
	}
}

func TestBuild_ValidConfig_Success(t *testing.T) {
	cfg := &config.Config{
		TrustedDimensions: []string{"pool"},
		BotGroup: []config.BotGroup{
			{
				BotID:      []string{"vm{1..3}-m1", "build4-a9"},
				Auth:       &config.BotAuth{RequireLUCIMachineToken: true},
				Owners:     []string{"somebody@example.com"},
				Dimensions: []string{"pool:skia", "os:Linux"},
			},
			validGroup("win-"),
			{
				Auth: &config.BotAuth{IPWhitelist: "corp-vpn"},
			},
		},
	}
	s, err := Build(cfg)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NotEmpty(t, s.Revision())

	// The brace expansion is materialized into the literal index.
	for _, id := range []string{"vm1-m1", "vm2-m1", "vm3-m1", "build4-a9"} {
		g, ok := s.ResolveBotGroup(id)
		require.True(t, ok, id)
		require.Same(t, &s.cfg.BotGroup[0], g)
	}
}

func TestBuild_DoesNotMutateOrRetainInput(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{validGroup("vm-")},
	}
	s, err := Build(cfg)
	require.NoError(t, err)

	// Mutating the input after Build must not change resolution results.
	cfg.BotGroup[0].BotIDPrefix[0] = "win-"
	_, ok := s.ResolveBotGroup("vm-22")
	require.True(t, ok)
	_, ok = s.ResolveBotGroup("win-22")
	require.False(t, ok)
}

func TestBuild_MultipleDefaultGroups_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{Auth: &config.BotAuth{RequireLUCIMachineToken: true}},
			{Auth: &config.BotAuth{RequireLUCIMachineToken: true}},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "multiple default groups")
	require.ErrorContains(t, err, "#1, #2")
}

func TestBuild_IntersectingPrefixes_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			validGroup("vm-"),
			validGroup("vm-1"),
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, `bot_id_prefix "vm-" and "vm-1" intersect`)
}

func TestBuild_EqualPrefixesInDifferentGroups_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			validGroup("vm-"),
			validGroup("vm-"),
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "intersect")
}

func TestBuild_MutuallyExclusiveAuthModes_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{
				BotID: []string{"bot1"},
				Auth: &config.BotAuth{
					RequireLUCIMachineToken: true,
					RequireServiceAccount:   "a@b.iam.gserviceaccount.com",
				},
			},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "mutually exclusive")
}

func TestBuild_MissingAuth_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{BotID: []string{"bot1"}},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "bot_group #1: auth is required")
}

func TestBuild_AuthWithNoMechanism_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{BotID: []string{"bot1"}, Auth: &config.BotAuth{}},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "auth must set")
}

func TestBuild_BotTokenSentinelWithMachineTokenAuth_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{
				BotID:                []string{"bot1"},
				Auth:                 &config.BotAuth{RequireLUCIMachineToken: true},
				SystemServiceAccount: "bot",
			},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, `system_service_account "bot" requires auth.require_service_account`)
}

func TestBuild_BotTokenSentinelWithServiceAccountAuth_Success(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{
				BotID:                []string{"bot1"},
				Auth:                 &config.BotAuth{RequireServiceAccount: "sa@proj.iam.gserviceaccount.com"},
				SystemServiceAccount: "bot",
			},
		},
	}
	_, err := Build(cfg)
	require.NoError(t, err)
}

func TestBuild_MalformedSystemServiceAccount_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{
				BotID:                []string{"bot1"},
				Auth:                 &config.BotAuth{RequireLUCIMachineToken: true},
				SystemServiceAccount: "not-an-email",
			},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "is not a service account email")
}

func TestBuild_DuplicateBotIDAcrossGroups_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{BotID: []string{"vm{1..5}"}, Auth: &config.BotAuth{RequireLUCIMachineToken: true}},
			{BotID: []string{"vm3"}, Auth: &config.BotAuth{RequireLUCIMachineToken: true}},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, `bot_id "vm3" also belongs to bot_group #1`)
}

func TestBuild_DuplicateMachineTypeName_Error(t *testing.T) {
	mt := config.MachineType{
		Name:              "skia-gce-linux",
		LeaseDurationSecs: 3600,
	}
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{
				BotIDPrefix: []string{"a-"},
				MachineType: []config.MachineType{mt},
				Auth:        &config.BotAuth{RequireLUCIMachineToken: true},
			},
			{
				BotIDPrefix: []string{"b-"},
				MachineType: []config.MachineType{mt},
				Auth:        &config.BotAuth{RequireLUCIMachineToken: true},
			},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, `machine_type name "skia-gce-linux" is already used by bot_group #1`)
}

func TestBuild_ScheduleViolations_AllCollected(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{
				BotIDPrefix: []string{"vm-"},
				Auth:        &config.BotAuth{RequireLUCIMachineToken: true},
				MachineType: []config.MachineType{
					{
						Name:              "bad-schedule",
						LeaseDurationSecs: 3600,
						Schedule: &config.Schedule{
							Daily: []config.DailySchedule{
								{Start: "18:00", End: "08:00", DaysOfTheWeek: []int{0}},
								{Start: "25:00", End: "26:00", DaysOfTheWeek: []int{7}},
							},
							LoadBased: []config.LoadBased{
								{MinimumSize: 10, MaximumSize: 5},
							},
						},
					},
				},
			},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, `start "18:00" is not before end "08:00"`)
	require.ErrorContains(t, err, "Hours must be between 0-23, not 25")
	require.ErrorContains(t, err, "days_of_the_week value 7 is outside")
	require.ErrorContains(t, err, "minimum_size 10 is larger than maximum_size 5")
}

func TestBuild_EarlyReleaseLongerThanLease_Error(t *testing.T) {
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{
				BotIDPrefix: []string{"vm-"},
				Auth:        &config.BotAuth{RequireLUCIMachineToken: true},
				MachineType: []config.MachineType{
					{
						Name:              "too-eager",
						LeaseDurationSecs: 600,
						EarlyReleaseSecs:  600,
					},
				},
			},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "early_release_secs must be smaller than lease_duration_secs")
}

func TestBuild_BadDimensionPairs_Error(t *testing.T) {
	cfg := &config.Config{
		TrustedDimensions: []string{"pool:skia"},
		BotGroup: []config.BotGroup{
			{
				BotID:      []string{"bot1"},
				Auth:       &config.BotAuth{RequireLUCIMachineToken: true},
				Dimensions: []string{"no-colon", ":empty-key"},
			},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, `trusted_dimensions: "pool:skia" must be a bare dimension key`)
	require.ErrorContains(t, err, `"no-colon" is not a "key:value" pair`)
	require.ErrorContains(t, err, `":empty-key" is not a "key:value" pair`)
}

func TestBuild_CollectsErrorsAcrossGroups(t *testing.T) {
	// One pass over an invalid config reports every violation, not just
	// the first.
	cfg := &config.Config{
		BotGroup: []config.BotGroup{
			{BotID: []string{"vm{"}},
			{BotIDPrefix: []string{""}},
		},
	}
	s, err := Build(cfg)
	require.Nil(t, s)
	require.ErrorContains(t, err, "unbalanced braces")
	require.ErrorContains(t, err, "bot_group #1: auth is required")
	require.ErrorContains(t, err, "bot_group #2: empty bot_id_prefix")
	require.ErrorContains(t, err, "bot_group #2: auth is required")
}
