package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeployQueryOrdering(t *testing.T) {
	cmd := DeployCommand(DeployOptions{
		Name:        "app",
		Artifact:    "/tmp/app.war",
		Instance:    "instance1",
		ContextRoot: "/demo",
		HotDeploy:   true,
	})
	assert.Equal(t, "DEFAULT=/tmp/app.war&force=true&name=app&target=instance1&contextroot=/demo&hotDeploy=true", cmd.Query())
	assert.Equal(t, "/tmp/app.war", cmd.Payload)
	assert.Equal(t, "POST", cmd.method())
}

func TestDeployQueryOptionalParams(t *testing.T) {
	cmd := DeployCommand(DeployOptions{Artifact: "/work/app/target/app", Exploded: true})
	assert.Equal(t, "DEFAULT=/work/app/target/app&force=true", cmd.Query())
	assert.Empty(t, cmd.Payload)
	assert.Equal(t, "GET", cmd.method())
}

func TestOtherCommands(t *testing.T) {
	assert.Equal(t, "DEFAULT=app", UndeployCommand("app", "").Query())
	assert.Equal(t, "DEFAULT=app&target=i1", UndeployCommand("app", "i1").Query())
	assert.Equal(t, "POST", UndeployCommand("app", "").method())
	assert.Equal(t, "pattern=applications.application.app.context-root", GetCommand("applications.application.app.context-root").Query())
	assert.Equal(t, "start=42&instanceName=server", ViewLogCommand("42", "server").Query())
	assert.Equal(t, ContentTypeText, ViewLogCommand("0", "").Accept)
	assert.Equal(t, "", VersionCommand().Query())
}

func TestQueryEscapesStructuralCharacters(t *testing.T) {
	cmd := Command{Verb: "get", Params: []Param{{"pattern", "a&b c#d"}}}
	assert.Equal(t, "pattern=a%26b%20c%23d", cmd.Query())
}

func TestCommandURL(t *testing.T) {
	s := NewServerInstance("localhost", 4848, "http")
	s.PathPrefix = "management/domain"
	assert.Equal(t, "http://localhost:4848/management/domain/version", s.CommandURL(VersionCommand()))

	s.PathPrefix = ""
	assert.Equal(t, "http://localhost:4848/__asadmin/get?pattern=x", s.CommandURL(GetCommand("x")))
}

func TestInstanceUpgradeIsMonotonic(t *testing.T) {
	s := NewServerInstance("localhost", 8080, "http")
	assert.False(t, s.Secure())
	assert.True(t, s.upgrade(8181))
	assert.True(t, s.Secure())
	assert.Equal(t, 8181, s.AdminPort())
	assert.False(t, s.upgrade(9999))
	assert.Equal(t, 8181, s.AdminPort())
}

func TestApplicationURL(t *testing.T) {
	s := NewServerInstance("localhost", 8080, "http")
	s.HTTPPort = 8080
	s.HTTPSPort = 8181
	assert.Equal(t, "http://localhost:8080/demo", s.ApplicationURL("/demo"))
	s.upgrade(0)
	assert.Equal(t, "https://localhost:8181/demo", s.ApplicationURL("demo"))
}
