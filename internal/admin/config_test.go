package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/payara-dev/internal/config"
)

func TestNewClientFromConfig(t *testing.T) {
	c := NewClientFromConfig(config.AdminConfig{
		Host:           "localhost",
		Port:           4848,
		Protocol:       "https",
		PathPrefix:     ServerPathPrefix,
		Domain:         "domain1",
		User:           "admin",
		Password:       "secret",
		HTTPPort:       9080,
		ConnectTimeout: time.Second,
		ReadTimeout:    2 * time.Second,
		DeployTimeout:  time.Minute,
	}, nil)

	inst := c.Instance()
	assert.Equal(t, ProtocolHTTPS, inst.Protocol())
	assert.Equal(t, 4848, inst.AdminPort())
	assert.Equal(t, ServerPathPrefix, inst.PathPrefix)
	assert.Equal(t, 9080, inst.HTTPPort)
	assert.Equal(t, 8181, inst.HTTPSPort)
	assert.Equal(t, "secret", inst.Password)
	assert.Equal(t, 2*time.Second, c.timeout(VersionCommand()))
	assert.Equal(t, time.Minute, c.timeout(DeployCommand(DeployOptions{Name: "app", Artifact: "/work/app.war"})))
}

func TestDeployOptionsFromConfig(t *testing.T) {
	opts := DeployOptionsFromConfig(config.DeployConfig{
		Name:        "app",
		Artifact:    "/work/target/app",
		ContextRoot: "/demo",
		Exploded:    true,
	})
	assert.Equal(t, DeployOptions{Name: "app", Artifact: "/work/target/app", ContextRoot: "/demo", Exploded: true}, opts)
}
