//go:build nohtmltar

package polyglot

import "context"

// HTMLTarSupported reports whether this build renders the html+tar target.
const HTMLTarSupported = false

func (c *Composer) renderHTMLTar(_ context.Context, _ Inputs, _ *Result) error {
	return &UnsupportedFeatureError{
		What:    "the html+tar target",
		Feature: "htmltar",
		Remedy:  "rebuild without the nohtmltar build tag",
	}
}
