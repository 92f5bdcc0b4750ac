package boarman

import "github.com/michaelbrown/boarman/internal/runtime"

const PluginName = "boris-boarman"

// Plugin bundles the profile analysis action for registration with a runtime.
func Plugin(cfg Config) runtime.Plugin {
	return runtime.Plugin{
		Name:        PluginName,
		Description: "Boris Boarman Plugin",
		Actions:     []runtime.Action{NewAnalyzeTwitterAccount(cfg)},
	}
}
