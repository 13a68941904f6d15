// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import (
	"errors"
	"fmt"
	"strings"
)

// usernameLabelSeparator separates the base username from its labels.
const usernameLabelSeparator = "-"

// ErrUsernameNoBase indicates that the username has an empty base part.
var ErrUsernameNoBase = errors.New("weft: username without a base part")

// ErrUsernameEmptyLabel indicates that the username contains an empty label.
var ErrUsernameEmptyLabel = errors.New("weft: username with an empty label")

// ErrUsernameLabelRejected indicates that the parser aborted on a label.
var ErrUsernameLabelRejected = errors.New("weft: username label rejected by parser")

// LabelState is a [UsernameLabelParser]'s verdict on a single label.
type LabelState int

const (
	// LabelUsed means the parser consumed the label.
	LabelUsed = LabelState(iota)

	// LabelIgnored means the parser did not recognize the label. Parsing
	// continues: unrecognized labels are not an error.
	LabelIgnored

	// LabelAbort means the label is malformed for this parser and the
	// whole parse fails.
	LabelAbort
)

// UsernameLabelParser interprets the labels of a structured username of
// the form `base-label1-label2`. A fresh parser instance must be used for
// every parse: ParseLabel accumulates state that Build turns into
// [Extensions] facts.
type UsernameLabelParser interface {
	// ParseLabel inspects one label in order of appearance.
	ParseLabel(label string) LabelState

	// Build stores the accumulated facts into ext. It is called once,
	// after every label has been inspected.
	Build(ext *Extensions) error
}

// ParseUsername decomposes a structured username into its base part,
// feeding each dash-separated label to the given parser and storing the
// parser's facts into ext.
//
// Returns the base username on success. Fails when the base or any label
// is empty, when the parser aborts on a label, or when the parser's Build
// fails; in that case ext is left unmodified except for what Build may
// have written before failing.
func ParseUsername(ext *Extensions, parser UsernameLabelParser, username string) (string, error) {
	parts := strings.Split(username, usernameLabelSeparator)
	base := parts[0]
	if base == "" {
		return "", ErrUsernameNoBase
	}
	for _, label := range parts[1:] {
		if label == "" {
			return "", ErrUsernameEmptyLabel
		}
		if parser.ParseLabel(label) == LabelAbort {
			return "", fmt.Errorf("%w: %q", ErrUsernameLabelRejected, label)
		}
	}
	if err := parser.Build(ext); err != nil {
		return "", err
	}
	return base, nil
}

// OpaqueLabelParser is a [UsernameLabelParser] that treats every label as
// opaque, collecting them in order into a [UsernameLabels] fact. When the
// username carries no labels at all, no fact is inserted.
//
// Use [NewOpaqueLabelParser] as the parser factory for [LabeledBasic].
type OpaqueLabelParser struct {
	labels []string
}

var _ UsernameLabelParser = &OpaqueLabelParser{}

// NewOpaqueLabelParser returns a fresh [*OpaqueLabelParser].
func NewOpaqueLabelParser() UsernameLabelParser {
	return &OpaqueLabelParser{}
}

// ParseLabel implements [UsernameLabelParser].
func (p *OpaqueLabelParser) ParseLabel(label string) LabelState {
	p.labels = append(p.labels, label)
	return LabelUsed
}

// Build implements [UsernameLabelParser].
func (p *OpaqueLabelParser) Build(ext *Extensions) error {
	if len(p.labels) > 0 {
		Insert(ext, UsernameLabels(p.labels))
	}
	return nil
}
