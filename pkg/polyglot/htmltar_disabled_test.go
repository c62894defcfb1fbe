//go:build nohtmltar

package polyglot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

func TestCompose_HTMLTarUnsupported(t *testing.T) {
	t.Parallel()

	in := baseInputs()
	in.Target = config.TargetHTMLTar

	_, err := composer(nil).Compose(context.Background(), in)

	var unsupported *polyglot.UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "htmltar", unsupported.Feature)
	assert.False(t, polyglot.HTMLTarSupported)
}
