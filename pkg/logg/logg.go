// Package logg holds the structured field keys shared by every logger in the
// module so log lines from different layers can be filtered the same way.
package logg

const (
	Layer      = "layer"
	Operation  = "operation"
	SessionID  = "session_id"
	Browser    = "browser"
	Locator    = "locator"
	Condition  = "condition"
	Timeout    = "timeout"
	URL        = "url"
	Selector   = "selector"
	Key        = "key"
	Attribute  = "attribute"
	Command    = "command"
	Elapsed    = "elapsed"
	PollCount  = "polls"
	Endpoint   = "endpoint"
	ConfigPath = "config_path"
)
