package cmd

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/datasources/cassandra"
	"github.com/cube2222/connplan/datasources/elasticsearch"
	"github.com/cube2222/connplan/datasources/sql"
	"github.com/cube2222/connplan/engine"
)

var planCmd = &cobra.Command{
	Use:   "plan [name...]",
	Short: "Print the splits of the given connectors, all connectors by default.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		connectorConfigs, err := selectConnectors(cfg, args)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"connector", "backend", "mode", "reader", "split", "range", "query"})
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)

		for _, connectorConfig := range connectorConfigs {
			c, err := createConnector(connectorConfig)
			if err != nil {
				return err
			}
			plan, err := engine.Prepare(c)
			if err != nil {
				return err
			}
			for _, split := range plan.Splits {
				table.Append([]string{
					connectorConfig.Name,
					string(plan.Backend),
					string(plan.Mode),
					string(plan.Reader),
					strconv.Itoa(split.Index),
					splitRange(split),
					splitQuery(plan.Native, split),
				})
			}
		}

		table.Render()
		return nil
	},
}

func splitRange(split connector.Split) string {
	if !split.Bounded {
		return "*"
	}
	return split.Range.String()
}

func splitQuery(native connector.NativeConfiguration, split connector.Split) string {
	switch native := native.(type) {
	case *sql.Native:
		if split.Index < len(native.Statements) {
			return withArgs(native.Statements[split.Index].Query, native.Statements[split.Index].Args)
		}
		return withArgs(native.Query, native.Args)
	case *cassandra.Native:
		if split.Index < len(native.Statements) {
			return withArgs(native.Statements[split.Index].Query, native.Statements[split.Index].Args)
		}
		return withArgs(native.Query, native.Args)
	case *elasticsearch.Native:
		if native.Query == "" {
			return native.Settings["es.write.operation"] + " " + native.Resource
		}
		return native.Query
	}
	return ""
}

func withArgs(query string, args []interface{}) string {
	if query == "" {
		return "-"
	}
	if len(args) == 0 {
		return query
	}
	return fmt.Sprintf("%s %v", query, args)
}

func init() {
	rootCmd.AddCommand(planCmd)
}
