// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import "github.com/bassosimone/errclass"

// ErrClassifier classifies errors into categorical strings for logging.
//
// Implementations map errors to short, descriptive labels (e.g.,
// "ETIMEDOUT", "ECONNRESET") attached to the errClass field of span
// events. The classifier is for observability only: the driver's
// benign-close decision is a match over a closed error set (see
// [IsConnError]) and does not depend on the classifier.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using [errclass.New].
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
