package bypass

// Switch is a browser-engine command-line switch applied once at process
// start, before any network activity. An empty Value means a bare switch.
type Switch struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// String renders the switch in command-line form
func (s Switch) String() string {
	if s.Value == "" {
		return "--" + s.Name
	}
	return "--" + s.Name + "=" + s.Value
}

// Switches returns the process-start switches implied by the policy.
// Site isolation is always disabled so injected script can reach every frame.
func (e *Engine) Switches() []Switch {
	var out []Switch

	if e.policy.AllowAutoplay {
		out = append(out, Switch{Name: "autoplay-policy", Value: "no-user-gesture-required"})
	}
	if e.policy.AllowInsecureCert {
		out = append(out,
			Switch{Name: "ignore-certificate-errors"},
			Switch{Name: "allow-insecure-localhost"},
		)
	}
	out = append(out, Switch{Name: "disable-site-isolation-trials"})

	return out
}
