package cmd

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/KanoComputing/aws-tools/internal/policy"
)

var debugPolicyInput string

var debugPolicyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Dump the parsed form of a policy document",
	Long: `Parses and validates a policy document, then dumps the internal
	representation and the derived part IDs. Handy when a document fails
	validation and the error alone is not enough.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := policy.Load(debugPolicyInput)
		if err != nil {
			return err
		}
		spew.Dump(doc)

		parts, all, err := policy.Encode(doc)
		if err != nil {
			return err
		}
		fmt.Printf("%d parts (%d unique IDs):\n", len(parts), len(all))
		for _, p := range parts {
			fmt.Println("  " + p.ID())
		}
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugPolicyCmd)

	debugPolicyCmd.Flags().StringVarP(&debugPolicyInput, "input", "f", "", "Policy document (JSON)")
	_ = debugPolicyCmd.MarkFlagRequired("input")
}
