package botauth

import (
	"go.skia.org/fleet/botpolicy/go/config"
)

// AccountKind classifies how bots of a group obtain tokens for system-level
// services.
type AccountKind string

const (
	// AccountNone means the group makes no authenticated system calls.
	AccountNone AccountKind = "none"

	// AccountExplicit means tokens are minted for a specific service
	// account; the token minter verifies the server's delegation rights
	// on that account.
	AccountExplicit AccountKind = "explicit"

	// AccountBotToken means the bot's own OAuth token is reused. Only
	// possible for groups authenticated via require_service_account;
	// validation rejects the sentinel elsewhere.
	AccountBotToken AccountKind = "bot-token"
)

// SystemAccount is the resolved system-service-account decision for a group.
type SystemAccount struct {
	Kind AccountKind
	// Email is the service account to mint tokens for. Set only for
	// AccountExplicit.
	Email string
}

// ResolveSystemAccount determines the system service account of the given
// group from its system_service_account field.
func ResolveSystemAccount(g *config.BotGroup) SystemAccount {
	switch g.SystemServiceAccount {
	case "":
		return SystemAccount{Kind: AccountNone}
	case config.SystemServiceAccountBot:
		return SystemAccount{Kind: AccountBotToken}
	default:
		return SystemAccount{
			Kind:  AccountExplicit,
			Email: g.SystemServiceAccount,
		}
	}
}
