package schema

// AgentSettings tunes the session loop and model invoker.
type AgentSettings struct {
	Model              string
	MaxTokens          int
	Temperature        float64
	MaxSteps           int  // model/tool iterations per round
	MaxToolFailures    int  // consecutive failures before a tool is locked out
	MaxProtocolRetries int  // corrective retries after a malformed round
	ParallelTools      bool // run independent, non-disruptive calls concurrently
}

// DefaultAgentSettings returns the settings used when nothing is configured.
func DefaultAgentSettings() AgentSettings {
	return AgentSettings{
		Model:              "gpt-4o",
		MaxTokens:          4096,
		Temperature:        0,
		MaxSteps:           10,
		MaxToolFailures:    3,
		MaxProtocolRetries: 2,
	}
}
