// Package botauth decides whether a connecting bot satisfies the
// authentication policy of its resolved bot group.
//
// The package never performs I/O of its own: token verification, service
// account introspection, and IP whitelist contents are all resolved by
// collaborators before or during evaluation, and the evaluator only combines
// the resulting facts.
package botauth

import (
	"context"

	"go.skia.org/fleet/botpolicy/go/config"
)

// Reason tags a rejected connection with the check that failed, for
// observability. Accepted connections carry no reason.
type Reason string

const (
	ReasonTokenHostnameMismatch  Reason = "token-hostname-mismatch"
	ReasonServiceAccountMismatch Reason = "service-account-mismatch"
	ReasonIPNotWhitelisted       Reason = "ip-not-whitelisted"
	ReasonNoAuthMechanism        Reason = "no-auth-mechanism"
)

// Credentials is the bundle of already-verified facts about a connection,
// extracted by the transport layer. Empty string fields mean the credential
// was not presented.
type Credentials struct {
	// MachineTokenHostname is the hostname embedded in a verified LUCI
	// machine token, if one was presented.
	MachineTokenHostname string

	// ServiceAccountEmail is the email of the verified OAuth identity, if
	// one was presented.
	ServiceAccountEmail string

	// SourceIP is the IP address the connection arrived from. Always set.
	SourceIP string
}

// WhitelistChecker answers IP allow-list membership questions. The active
// lists are maintained externally; implementations must not block.
type WhitelistChecker interface {
	// IPInWhitelist returns true if the given IP belongs to the named
	// allow-list. Unknown list names yield false.
	IPInWhitelist(ctx context.Context, name, ip string) bool
}

// Verdict is the outcome of evaluating one connection.
type Verdict struct {
	Accepted bool
	// Reason identifies the failed check when Accepted is false.
	Reason Reason
}

func accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

// Evaluate applies the group's auth policy to the observed credentials of a
// bot claiming the given ID. Every applicable condition must hold; the first
// failing check determines the rejection reason.
func Evaluate(ctx context.Context, auth *config.BotAuth, botID string, creds Credentials, wl WhitelistChecker) Verdict {
	// Validation requires every group to carry an auth block with at
	// least one mechanism, but an unauthenticatable group must still fail
	// closed here in case a snapshot was built from unvalidated data.
	if auth == nil {
		return reject(ReasonNoAuthMechanism)
	}

	switch {
	case auth.RequireLUCIMachineToken:
		// The token hostname must equal the claimed bot ID exactly; a
		// token minted for another host on the same domain is not
		// acceptable.
		if creds.MachineTokenHostname == "" || creds.MachineTokenHostname != botID {
			return reject(ReasonTokenHostnameMismatch)
		}
	case auth.RequireServiceAccount != "":
		if creds.ServiceAccountEmail != auth.RequireServiceAccount {
			return reject(ReasonServiceAccountMismatch)
		}
	default:
		// No primary mode; the group authenticates purely by IP.
		if auth.IPWhitelist == "" {
			return reject(ReasonNoAuthMechanism)
		}
	}

	if auth.IPWhitelist != "" {
		if wl == nil || !wl.IPInWhitelist(ctx, auth.IPWhitelist, creds.SourceIP) {
			return reject(ReasonIPNotWhitelisted)
		}
	}

	return accept()
}
