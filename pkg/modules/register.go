package modules

import (
	"github.com/jobforge/jobforge/pkg/registry"
)

// Register wires every built-in module, component, project root, and
// view root into the given registry.
func Register(reg *registry.Registry) error {
	for _, m := range []registry.Module{
		General{},
		Properties{},
		Parameters{},
		Triggers{},
		Builders{},
		Publishers{},
	} {
		if err := reg.RegisterModule(m); err != nil {
			return err
		}
	}

	if err := reg.RegisterProject("freestyle", Freestyle); err != nil {
		return err
	}
	if err := reg.RegisterView("list", ListView); err != nil {
		return err
	}
	if err := reg.RegisterView("pipeline", PipelineView); err != nil {
		return err
	}

	components := []struct {
		category string
		name     string
		gen      registry.Generator
	}{
		{"property", "github", GithubProperty},
		{"property", "least-load", LeastLoadProperty},

		{"parameter", "string", StringParam},
		{"parameter", "text", TextParam},
		{"parameter", "bool", BoolParam},
		{"parameter", "file", FileParam},
		{"parameter", "choice", ChoiceParam},
		{"parameter", "password", PasswordParam},

		{"trigger", "timed", TimedTrigger},
		{"trigger", "pollscm", PollSCMTrigger},
		{"trigger", "github", GithubTrigger},
		{"trigger", "reverse", ReverseTrigger},

		{"builder", "shell", ShellBuilder},
		{"builder", "batch", BatchBuilder},
		{"builder", "ant", AntBuilder},
		{"builder", "copyartifact", CopyArtifactBuilder},

		{"publisher", "archive", ArchivePublisher},
		{"publisher", "email", EmailPublisher},
		{"publisher", "trigger", TriggerPublisher},
		{"publisher", "fingerprint", FingerprintPublisher},
	}
	for _, c := range components {
		if err := reg.RegisterComponent(c.category, c.name, c.gen); err != nil {
			return err
		}
	}
	return nil
}
