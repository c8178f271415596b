// Package admin is a client for the Payara administration HTTP endpoint.
//
// It deploys and undeploys applications, queries properties, tails the
// server log and polls for readiness. A ServerInstance may upgrade from http
// to https exactly once when the server redirects; every later call uses the
// upgraded endpoint.
package admin

import (
	"fmt"
	"strings"
	"sync"
)

// Protocols.
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// Default administration path prefixes.
const (
	MicroPathPrefix  = "/__asadmin/"
	ServerPathPrefix = "/management/domain/"
)

// ServerInstance identifies one administration endpoint. Only the protocol
// and admin port change after construction, and only through the one-way
// https upgrade.
type ServerInstance struct {
	Host       string
	Domain     string
	User       string
	Password   string
	PathPrefix string
	// HTTPPort and HTTPSPort are the application ports used to compose
	// deployed application URLs.
	HTTPPort  int
	HTTPSPort int

	mutex     sync.RWMutex
	protocol  string
	adminPort int
}

// NewServerInstance creates an instance for host:adminPort over protocol.
func NewServerInstance(host string, adminPort int, protocol string) *ServerInstance {
	if protocol != ProtocolHTTPS {
		protocol = ProtocolHTTP
	}
	return &ServerInstance{
		Host:       host,
		PathPrefix: MicroPathPrefix,
		HTTPPort:   8080,
		HTTPSPort:  8181,
		protocol:   protocol,
		adminPort:  adminPort,
	}
}

// Protocol returns the current protocol.
func (s *ServerInstance) Protocol() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.protocol
}

// AdminPort returns the current administration port.
func (s *ServerInstance) AdminPort() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.adminPort
}

// Secure reports whether the instance has been upgraded to https.
func (s *ServerInstance) Secure() bool {
	return s.Protocol() == ProtocolHTTPS
}

// upgrade switches the instance to https on port. It returns false when the
// instance already uses https; the protocol never moves back to http.
func (s *ServerInstance) upgrade(port int) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.protocol == ProtocolHTTPS {
		return false
	}
	s.protocol = ProtocolHTTPS
	if port > 0 {
		s.adminPort = port
	}
	return true
}

// BaseURL returns protocol://host:port.
func (s *ServerInstance) BaseURL() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return fmt.Sprintf("%s://%s:%d", s.protocol, s.Host, s.adminPort)
}

// CommandURL returns the full URL of cmd against this instance.
func (s *ServerInstance) CommandURL(cmd Command) string {
	prefix := s.PathPrefix
	if prefix == "" {
		prefix = MicroPathPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	u := s.BaseURL() + prefix + cmd.Verb
	if q := cmd.Query(); q != "" {
		u += "?" + q
	}
	return u
}

// ApplicationURL composes the externally reachable URL of an application
// deployed under contextRoot.
func (s *ServerInstance) ApplicationURL(contextRoot string) string {
	port := s.HTTPPort
	protocol := s.Protocol()
	if protocol == ProtocolHTTPS {
		port = s.HTTPSPort
	}
	if !strings.HasPrefix(contextRoot, "/") {
		contextRoot = "/" + contextRoot
	}
	return fmt.Sprintf("%s://%s:%d%s", protocol, s.Host, port, contextRoot)
}
