package cli

import (
	"bytes"
	"context"
	"github.com/denismitr/kire"
	"github.com/denismitr/kire/internal/cli/commands"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

var reminderIDPattern = regexp.MustCompile(`rem-\d+-[0-9a-f]+`)

type cliTestSuite struct {
	suite.Suite
	storePath string
	noColor   bool
}

func TestCLI(t *testing.T) {
	suite.Run(t, &cliTestSuite{})
}

func (s *cliTestSuite) SetupTest() {
	home := s.T().TempDir()
	s.T().Setenv("XDG_CONFIG_HOME", home)
	s.T().Setenv("HOME", home)
	s.storePath = filepath.Join(home, "data", "reminders.json")

	s.noColor = color.NoColor
	color.NoColor = true
}

func (s *cliTestSuite) TearDownTest() {
	color.NoColor = s.noColor
}

func (s *cliTestSuite) run(args ...string) (string, error) {
	var out, errOut bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--store-path", s.storePath, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *cliTestSuite) mustRun(args ...string) string {
	out, err := s.run(args...)
	s.Require().NoError(err, out)
	return out
}

func (s *cliTestSuite) add(args ...string) string {
	out := s.mustRun(append([]string{"add"}, args...)...)
	s.Require().Contains(out, "Created ")

	id := reminderIDPattern.FindString(out)
	s.Require().NotEmpty(id, out)
	return id
}

func (s *cliTestSuite) TestReminderLifecycle() {
	id := s.add("--at", "07:30", "--days", "mon-fri", "Stretch", "a", "little")

	out := s.mustRun("ls")
	s.Contains(out, id)
	s.Contains(out, "07:30")
	s.Contains(out, "Mon - Fri")
	s.Contains(out, "Stretch a little")
	s.Contains(out, "on")

	out = s.mustRun("show", id)
	s.Contains(out, "Stretch a little")
	s.Contains(out, "Notifications")

	out = s.mustRun("disable", id)
	s.Contains(out, "Disabled "+id)

	out = s.mustRun("ls", "--enabled")
	s.Contains(out, "No reminders found.")

	out = s.mustRun("ls", "--disabled")
	s.Contains(out, id)

	out = s.mustRun("enable", id)
	s.Contains(out, "Enabled "+id)
	s.Contains(out, "next: ")

	out = s.mustRun("edit", id, "--once", "--text", "Dentist", "--at", "16:45")
	s.Contains(out, "Updated "+id+" 16:45 \"Dentist\"")

	out = s.mustRun("ls", "--once")
	s.Contains(out, "once")
	s.Contains(out, "Dentist")

	out = s.mustRun("rm", id)
	s.Contains(out, "Deleted "+id)

	out = s.mustRun("ls")
	s.Contains(out, "No reminders found.")
}

func (s *cliTestSuite) TestListFiltersAndOrder() {
	morning := s.add("--at", "06:15", "Run")
	evening := s.add("--at", "21:00", "--repeat", "--pattern", "siren", "Bins")

	out := s.mustRun("ls")
	s.Less(bytes.Index([]byte(out), []byte(morning)), bytes.Index([]byte(out), []byte(evening)))
	s.Contains(out, "daily")
	s.Contains(out, "Siren")

	out = s.mustRun("ls", "--desc")
	s.Greater(bytes.Index([]byte(out), []byte(morning)), bytes.Index([]byte(out), []byte(evening)))

	out = s.mustRun("ls", "--from", "12:00")
	s.NotContains(out, morning)
	s.Contains(out, evening)

	out = s.mustRun("ls", "--repeat")
	s.NotContains(out, morning)
	s.Contains(out, evening)
}

func (s *cliTestSuite) TestCorruptStoreFileStartsEmpty() {
	corrupt := []byte(`{"kire.reminders.v1": [`)
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.storePath), 0700))
	s.Require().NoError(os.WriteFile(s.storePath, corrupt, 0600))

	out := s.mustRun("ls")
	s.Contains(out, "No reminders found.")

	backup, err := os.ReadFile(s.storePath + ".corrupt")
	s.Require().NoError(err)
	s.Equal(corrupt, backup)

	id := s.add("--at", "08:00", "Recovered")
	s.Contains(s.mustRun("ls"), id)
}

func (s *cliTestSuite) TestAsyncPersistence() {
	id := s.add("--persistence", "async", "--flush-interval", "50ms", "--at", "07:45", "Stretch")

	s.Contains(s.mustRun("ls"), id, "async changes are written on close")
}

func (s *cliTestSuite) TestRefresh() {
	s.add("--at", "10:00", "Tea")

	out := s.mustRun("refresh")
	s.Contains(out, "1 of 1 reminders enabled")
}

func (s *cliTestSuite) TestBadInput() {
	_, err := s.run("add", "--at", "25:00", "Nope")
	s.ErrorIs(err, commands.ErrBadInput)

	_, err = s.run("add", "--at", "10:00", "--pattern", "buzz", "Nope")
	s.ErrorIs(err, kire.ErrInvalidDraft)

	_, err = s.run("add", "Missing time")
	s.Error(err)

	_, err = s.run("rm", "rem-0-0")
	s.ErrorIs(err, kire.ErrReminderNotFound)

	_, err = s.run("--persistence", "later", "ls")
	s.Error(err)

	_, err = s.run("ls", "--from", "22:00", "--to", "06:00")
	s.ErrorIs(err, commands.ErrBadInput)

	_, err = s.run("add", "--at", "07:00", "--days", "sunburn", "Nope")
	s.ErrorIs(err, commands.ErrBadInput)

	_, err = s.run("--missed-grace", "0s", "ls")
	s.Error(err)
}

func (s *cliTestSuite) TestPatternsAndVersion() {
	out := s.mustRun("patterns")
	for _, p := range kire.VibrationPatterns {
		s.Contains(out, p.ID)
	}

	out = s.mustRun("version")
	s.Equal("kire v"+Version+"\n", out)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"add", "edit", "rm", "enable", "disable", "ls", "show", "patterns", "refresh", "run", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "store-path", "log-level", "log-format", "persistence", "notifier", "missed-grace", "flush-interval"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}
