package admin

import (
	"strconv"
	"strings"
)

// Admin verbs.
const (
	VerbDeploy    = "deploy"
	VerbUndeploy  = "undeploy"
	VerbGet       = "get"
	VerbViewLog   = "view-log"
	VerbLocations = "locations"
	VerbVersion   = "version"
)

// Content types.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
	ContentTypeZip  = "application/zip"
)

// Param is one query parameter. Order is significant on the wire.
type Param struct {
	Key   string
	Value string
}

// Command is one immutable administration request.
type Command struct {
	Verb   string
	Params []Param
	// Payload is a file uploaded as a single-entry zip when non-empty.
	Payload string
	// Accept selects the response variant.
	Accept string
	// Method overrides the HTTP method; GET is used when empty and there is
	// no payload.
	Method string
}

// queryEscaper escapes only what would break the query structure so that
// paths such as /tmp/app.war stay readable on the wire.
var queryEscaper = strings.NewReplacer(
	"%", "%25",
	"&", "%26",
	"+", "%2B",
	"#", "%23",
	" ", "%20",
	"\n", "%0A",
	"\r", "%0D",
)

// Query renders the parameters in order.
func (c Command) Query() string {
	parts := make([]string, 0, len(c.Params))
	for _, p := range c.Params {
		parts = append(parts, queryEscaper.Replace(p.Key)+"="+queryEscaper.Replace(p.Value))
	}
	return strings.Join(parts, "&")
}

// DeployOptions configures a deploy command.
type DeployOptions struct {
	Name        string
	Artifact    string
	Instance    string
	ContextRoot string
	Exploded    bool
	HotDeploy   bool
}

// DeployCommand builds a deploy command. Archives are uploaded; exploded
// directories are referenced by path.
func DeployCommand(opts DeployOptions) Command {
	params := []Param{{"DEFAULT", opts.Artifact}, {"force", "true"}}
	if opts.Name != "" {
		params = append(params, Param{"name", opts.Name})
	}
	if opts.Instance != "" {
		params = append(params, Param{"target", opts.Instance})
	}
	if opts.ContextRoot != "" {
		params = append(params, Param{"contextroot", opts.ContextRoot})
	}
	if opts.HotDeploy {
		params = append(params, Param{"hotDeploy", strconv.FormatBool(opts.HotDeploy)})
	}

	cmd := Command{Verb: VerbDeploy, Params: params, Accept: ContentTypeJSON}
	if !opts.Exploded {
		cmd.Payload = opts.Artifact
	}
	return cmd
}

// UndeployCommand builds an undeploy command.
func UndeployCommand(name, instance string) Command {
	params := []Param{{"DEFAULT", name}}
	if instance != "" {
		params = append(params, Param{"target", instance})
	}
	return Command{Verb: VerbUndeploy, Params: params, Accept: ContentTypeJSON, Method: "POST"}
}

// GetCommand queries a dotted property path.
func GetCommand(pattern string) Command {
	return Command{Verb: VerbGet, Params: []Param{{"pattern", pattern}}, Accept: ContentTypeJSON}
}

// ViewLogCommand fetches log text starting at cursor.
func ViewLogCommand(cursor, instance string) Command {
	params := []Param{{"start", cursor}}
	if instance != "" {
		params = append(params, Param{"instanceName", instance})
	}
	return Command{Verb: VerbViewLog, Params: params, Accept: ContentTypeText}
}

// VersionCommand asks for the server version. It doubles as the liveness probe.
func VersionCommand() Command {
	return Command{Verb: VerbVersion, Accept: ContentTypeJSON}
}

// LocationsCommand asks for the server's filesystem locations.
func LocationsCommand() Command {
	return Command{Verb: VerbLocations, Accept: ContentTypeJSON}
}

// method returns the HTTP method for c.
func (c Command) method() string {
	if c.Method != "" {
		return c.Method
	}
	if c.Payload != "" {
		return "POST"
	}
	return "GET"
}
