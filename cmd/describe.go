package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/engine"
	"github.com/cube2222/connplan/logs"
)

type description struct {
	Name    string                        `yaml:"name"`
	Backend connector.Backend             `yaml:"backend"`
	Mode    connector.Mode                `yaml:"mode"`
	Entity  string                        `yaml:"entity"`
	Reader  connector.ReaderKind          `yaml:"reader"`
	Splits  int                           `yaml:"splits"`
	Native  connector.NativeConfiguration `yaml:"native"`
}

var describeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Print the native configuration of a connector as yaml, with credentials masked.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		connectorConfigs, err := selectConnectors(cfg, args)
		if err != nil {
			return err
		}
		c, err := createConnector(connectorConfigs[0])
		if err != nil {
			return err
		}
		plan, err := engine.Prepare(c)
		if err != nil {
			return err
		}

		var node yaml.Node
		if err := node.Encode(description{
			Name:    connectorConfigs[0].Name,
			Backend: plan.Backend,
			Mode:    plan.Mode,
			Entity:  plan.Shape.String(),
			Reader:  plan.Reader,
			Splits:  len(plan.Splits),
			Native:  plan.Native,
		}); err != nil {
			return errors.Wrap(err, "couldn't encode native configuration")
		}
		maskNode(&node)

		data, err := yaml.Marshal(&node)
		if err != nil {
			return errors.Wrap(err, "couldn't marshal native configuration")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func maskNode(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind == yaml.ScalarNode && value.Value != "" && logs.IsSecretKey(key.Value) {
				value.Value = "***"
				value.Tag = "!!str"
				continue
			}
			maskNode(value)
		}
	case yaml.ScalarNode:
		if node.Tag == "!!str" {
			node.Value = logs.Mask(node.Value)
		}
	default:
		for _, child := range node.Content {
			maskNode(child)
		}
	}
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
