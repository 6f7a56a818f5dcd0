package locator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_SupportedStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		want     Strategy
	}{
		{name: "css", strategy: "css", want: CSS},
		{name: "id", strategy: "id", want: ID},
		{name: "xpath", strategy: "xpath", want: XPath},
		{name: "upper case", strategy: "CSS", want: CSS},
		{name: "empty defaults to xpath", strategy: "", want: XPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Resolve(tt.strategy, "#submit")
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc.Strategy)
			assert.Equal(t, "#submit", loc.Identifier)
		})
	}
}

func TestResolve_EchoesStrategyName(t *testing.T) {
	for _, name := range []string{"css", "id", "xpath"} {
		loc, err := Resolve(name, "x")
		require.NoError(t, err)
		assert.Equal(t, name, loc.Strategy.String())
	}
}

func TestResolve_Unsupported(t *testing.T) {
	for _, name := range []string{"name", "link_text", "tag"} {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(name, "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedStrategy))

			var unsupported *UnsupportedStrategyError
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, name, unsupported.Name)
		})
	}
}

func TestNew_RejectsOutOfRange(t *testing.T) {
	_, err := New(Strategy(42), "x")
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)

	loc, err := New(ID, "main")
	require.NoError(t, err)
	assert.Equal(t, ByID("main"), loc)
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "css=#submit", ByCSS("#submit").String())
	assert.Equal(t, "xpath=//a", ByXPath("//a").String())
}
