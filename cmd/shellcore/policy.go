package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/policy"
)

// policyView is what the policy command prints
type policyView struct {
	Policy   policy.SecurityPolicy `json:"policy" yaml:"policy"`
	Issues   []string              `json:"issues" yaml:"issues"`
	Switches []string              `json:"switches" yaml:"switches"`
}

func newPolicyCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print the resolved security policy and the browser switches it implies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCore(flags)
			if err != nil {
				return err
			}
			defer c.logger.Sync()

			view := policyView{
				Policy:   c.store.Resolve(),
				Issues:   []string{},
				Switches: []string{},
			}
			for _, issue := range c.store.Issues() {
				view.Issues = append(view.Issues, issue.String())
			}
			for _, s := range c.engine.Switches() {
				view.Switches = append(view.Switches, s.String())
			}

			var data []byte
			if jsonOutput {
				data, err = sonic.ConfigStd.MarshalIndent(view, "", "  ")
			} else {
				data, err = yaml.Marshal(view)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON instead of YAML")

	return cmd
}
