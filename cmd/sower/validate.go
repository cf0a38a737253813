package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sower/pkg/adapters/yamlschema"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema]",
	Short: "Check a schema for consistency",
	Long:  `Loads the schema and reports duplicate names, unknown references and malformed parameters.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Schema is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("schema")
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		v, err := loadConfig()
		if err != nil {
			return err
		}
		path = v.GetString(cfgKeySchema)
	}
	if path == "" {
		return fmt.Errorf("no schema given")
	}

	ix, err := yamlschema.LoadFile(path)
	if err != nil {
		return err
	}
	return ix.Validate()
}
