package forkjoin

import (
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (ts *ConfigTestSuite) TestExplicitNumWorkersWins() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 7
	ts.Equal(7, resolveNumWorkers(cfg))
}

func (ts *ConfigTestSuite) TestEnvVarOverridesDefault() {
	ts.T().Setenv(NumThreadsEnvVar, "5")
	cfg := DefaultConfig()
	ts.Equal(5, resolveNumWorkers(cfg))
}

func (ts *ConfigTestSuite) TestEnvVarIgnoredWhenInvalid() {
	ts.T().Setenv(NumThreadsEnvVar, "not-a-number")
	cfg := DefaultConfig()
	got := resolveNumWorkers(cfg)
	ts.True(got > 0)
}

func (ts *ConfigTestSuite) TestNumWorkersFromFile() {
	dir := ts.T().TempDir()
	path := dir + "/forkjoin.toml"
	ts.Require().NoError(os.WriteFile(path, []byte("num_workers = 3\n"), 0o644))

	n, err := numWorkersFromFile(path)
	ts.NoError(err)
	ts.Equal(3, n)
}

func (ts *ConfigTestSuite) TestNumWorkersFromMissingFile() {
	_, err := numWorkersFromFile(ts.T().TempDir() + "/does-not-exist.toml")
	ts.Error(err)
}
