package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	testingclock "k8s.io/utils/clock/testing"

	"webbot/internal/condition"
	"webbot/internal/config"
	"webbot/internal/entity"
	"webbot/internal/interaction"
	"webbot/internal/locator"
	"webbot/internal/ports/fake"
	"webbot/internal/wait"
	"webbot/pkg/apperr"
)

func newTestConsole(t *testing.T) (*Interface, *fake.Session, *bytes.Buffer) {
	t.Helper()

	conf := &config.Config{
		BrowserConfig: &config.BrowserConfig{Kind: "chrome"},
		WaitConfig:    &config.WaitConfig{PollInterval: 200 * time.Millisecond},
	}
	clk := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	session := fake.NewSession()

	bot := interaction.New(interaction.Params{
		Config:   conf,
		Logger:   zap.NewNop(),
		Provider: &fake.Provider{Session: session},
		Engine:   wait.New(clk, 200*time.Millisecond, zap.NewNop()),
	})
	require.NoError(t, bot.Launch(context.Background()))

	out := &bytes.Buffer{}
	c := NewInterface(Params{
		Config:   conf,
		Logger:   zap.NewNop(),
		Bot:      bot,
		Settings: config.BotSettings{"usuario": "robo", "tentativas": 3},
	})
	c.out = out

	return c, session, out
}

func run(t *testing.T, c *Interface, script string) {
	t.Helper()
	require.NoError(t, c.RunScript(context.Background(), strings.NewReader(script)))
}

func TestRunScript_OpenAndClick(t *testing.T) {
	c, session, out := newTestConsole(t)
	el := fake.NewElement()
	session.Put(locator.ByCSS("#submit"), el)

	run(t, c, "# login flow\nopen https://example.com/login\n\nclick css #submit 5\n")

	assert.Equal(t, []string{"https://example.com/login"}, session.Navigated)
	assert.Equal(t, 1, el.Clicks)
	assert.Contains(t, out.String(), "clicked")
}

func TestRunScript_QuotedArgumentsAndSettings(t *testing.T) {
	c, session, _ := newTestConsole(t)
	loc := locator.ByXPath("//input[@name='user']")
	el := fake.NewElement()
	session.Put(loc, el)

	run(t, c, `write xpath "//input[@name='user']" $usuario`+"\n"+
		`write xpath "//input[@name='user']" " and friends"`+"\n")

	assert.Equal(t, "robo and friends", el.Value)
}

func TestRunScript_KeyAndAttr(t *testing.T) {
	c, session, out := newTestConsole(t)
	loc := locator.ByID("q")
	el := fake.NewElement()
	el.Attributes["placeholder"] = "Search"
	session.Put(loc, el)

	run(t, c, "key id q\nkey id q abc\nattr id q placeholder\n")

	assert.Equal(t, []entity.Key{entity.KeyEnter}, el.Keys)
	assert.Equal(t, "abc", el.Value)
	assert.Contains(t, out.String(), "Search\n")
}

func TestRunScript_FindAllPrintsEveryMatch(t *testing.T) {
	c, session, out := newTestConsole(t)
	first, second := fake.NewElement(), fake.NewElement()
	first.Content = "alpha"
	second.Content = "beta"
	session.Put(locator.ByCSS("li"), first, second)

	run(t, c, "findall css li\n")

	assert.Contains(t, out.String(), "2 element(s)")
	assert.Contains(t, out.String(), "[0] alpha")
	assert.Contains(t, out.String(), "[1] beta")
}

func TestRunScript_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	c, session, out := newTestConsole(t)
	session.URL = "https://example.com/login"

	run(t, c, "click name submit\nwaiturl /dashboard 1\nopen https://example.com\n")

	text := out.String()
	assert.Contains(t, text, "unsupported locator strategy")
	assert.Contains(t, text, "/dashboard")
	assert.Equal(t, []string{"https://example.com"}, session.Navigated)
}

func TestRunScript_ExitStopsProcessing(t *testing.T) {
	c, session, out := newTestConsole(t)

	run(t, c, "exit\nopen https://example.com\n")

	assert.Empty(t, session.Navigated)
	assert.Contains(t, out.String(), "Shutting down")
}

func TestExecute_ConfigLookup(t *testing.T) {
	c, _, out := newTestConsole(t)

	require.NoError(t, c.Execute(context.Background(), "config tentativas"))
	assert.Equal(t, "3\n", out.String())

	assert.ErrorContains(t, c.Execute(context.Background(), "config senha"), "senha")
}

func TestExecute_UsageErrors(t *testing.T) {
	c, _, _ := newTestConsole(t)

	for _, line := range []string{"open", "click css", "write id q", "writejs #q", "sleep", "waiturl"} {
		t.Run(line, func(t *testing.T) {
			err := c.Execute(context.Background(), line)
			assert.ErrorIs(t, err, errUsage)
		})
	}
}

func TestExecute_UnknownCondition(t *testing.T) {
	c, _, _ := newTestConsole(t)

	err := c.Execute(context.Background(), "find css #x shiny")
	assert.ErrorContains(t, err, "unsupported readiness condition")
}

func TestExecute_TextInWithoutText(t *testing.T) {
	c, session, out := newTestConsole(t)
	el := fake.NewElement()
	el.Content = "anything"
	session.Put(locator.ByCSS("#x"), el)

	err := c.Execute(context.Background(), "find css #x text_in")

	assert.ErrorIs(t, err, condition.ErrMissingText)
	assert.Equal(t, apperr.CodeUnsupportedCondition, apperr.CodeOf(err))
	assert.Empty(t, out.String())
}

func TestExecute_UnterminatedQuote(t *testing.T) {
	c, _, _ := newTestConsole(t)

	assert.Error(t, c.Execute(context.Background(), `write css #q "open`))
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "5", want: 5 * time.Second},
		{in: "2.5", want: 2500 * time.Millisecond},
		{in: "500ms", want: 500 * time.Millisecond},
		{in: "1m", want: time.Minute},
		{in: "-1", wantErr: true},
		{in: "1e20", wantErr: true},
		{in: "9223372037", wantErr: true},
		{in: "9223372036", want: 9223372036 * time.Second},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeout(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
