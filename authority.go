// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import "context"

// UserID is the resolved identity fact inserted into [Extensions] by a
// matching authority.
type UserID string

// UsernameLabels is the ordered list of labels parsed out of a
// structured username (see [ParseUsername]).
type UsernameLabels []string

// Basic is a username/password credential pair.
//
// Basic is both a credential value and a primitive validator: as an
// [AuthoritySync] it matches on exact equality and yields a [UserID]
// fact.
type Basic struct {
	// Username is the username.
	Username string

	// Password is the password.
	Password string
}

var _ AuthoritySync[Basic] = Basic{}

// Authorized implements [AuthoritySync] using exact comparison.
func (b Basic) Authorized(ext *Extensions, credentials Basic) bool {
	if b != credentials {
		return false
	}
	Insert(ext, UserID(b.Username))
	return true
}

// Authority determines whether a set of credentials is authorized.
//
// On a match it returns the [Extensions] facts describing the resolved
// identity, containing at least a [UserID]. On a non-match it returns
// false: absence of facts means "try the next candidate or reject" and is
// not an error. Authority implementations are immutable configuration,
// shared across all calls.
type Authority[C any] interface {
	Authorized(ctx context.Context, credentials C) (Extensions, bool)
}

// AuthoritySync is a synchronous refinement of [Authority] for primitive
// validators. On a match the validator writes its identity facts into ext
// and returns true; on a non-match it returns false.
//
// Adapt to the asynchronous form with [AsAuthority].
type AuthoritySync[C any] interface {
	Authorized(ext *Extensions, credentials C) bool
}

// AsAuthority adapts an [AuthoritySync] to the [Authority] interface by
// starting from an empty [Extensions] bag and returning it only on
// success.
func AsAuthority[C any](authority AuthoritySync[C]) Authority[C] {
	return &syncAuthorityAdapter[C]{authority}
}

// syncAuthorityAdapter adapts [AuthoritySync] to [Authority].
type syncAuthorityAdapter[C any] struct {
	authority AuthoritySync[C]
}

// Authorized implements [Authority].
func (a *syncAuthorityAdapter[C]) Authorized(ctx context.Context, credentials C) (Extensions, bool) {
	ext := NewExtensions()
	if !a.authority.Authorized(&ext, credentials) {
		return Extensions{}, false
	}
	return ext, true
}

// AuthoritySet composes validators of the same credential type with OR
// semantics: it succeeds iff any member succeeds, evaluated in order,
// first match wins, remaining members not consulted after a match.
//
// Each member is given a fresh bag, and only the matching member's facts
// are merged into ext: partial attempts from non-matching members never
// leak into the result.
type AuthoritySet[C any] []AuthoritySync[C]

var _ AuthoritySync[Basic] = AuthoritySet[Basic]{}

// Authorized implements [AuthoritySync].
func (s AuthoritySet[C]) Authorized(ext *Extensions, credentials C) bool {
	for _, member := range s {
		memberExt := NewExtensions()
		if member.Authorized(&memberExt, credentials) {
			ext.Extend(memberExt)
			return true
		}
	}
	return false
}

// LabeledBasic validates [Basic] credentials with support for structured
// usernames of the form `base-label1-label2`.
//
// Validation checks the password first, then decomposes the presented
// username with a fresh parser from NewParser. When parsing fails, the
// validator falls back to exact whole-credential comparison before
// rejecting. When the parsed base matches the configured username, the
// parser's facts are merged and a [UserID] with the base is inserted.
type LabeledBasic struct {
	// Credential is the configured username/password pair.
	Credential Basic

	// NewParser returns a fresh [UsernameLabelParser] per validation,
	// e.g. [NewOpaqueLabelParser].
	NewParser func() UsernameLabelParser
}

var _ AuthoritySync[Basic] = LabeledBasic{}

// Authorized implements [AuthoritySync].
func (a LabeledBasic) Authorized(ext *Extensions, credentials Basic) bool {
	if credentials.Password != a.Credential.Password {
		return false
	}

	parserExt := NewExtensions()
	base, err := ParseUsername(&parserExt, a.NewParser(), credentials.Username)
	if err != nil {
		if a.Credential == credentials {
			Insert(ext, UserID(credentials.Username))
			return true
		}
		return false
	}

	if base != a.Credential.Username {
		return false
	}

	ext.Extend(parserExt)
	Insert(ext, UserID(base))
	return true
}
