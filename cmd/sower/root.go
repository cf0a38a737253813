package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sower"
	"github.com/aretw0/sower/internal/logging"
	"github.com/aretw0/sower/pkg/adapters/yamlschema"
	"github.com/aretw0/sower/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "sower",
	Short: "Sower is a dependency-resolving fixture engine",
	Long:  `Sower loads a fixture schema and resolves entity requests into ordered command plans.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("schema", "", "Path to the YAML schema file")
	rootCmd.PersistentFlags().String("log-level", "", "Log verbosity (debug, info, warn, error)")
}

// loadEngine builds an engine from the schema named by --schema, falling
// back to the config file.
func loadEngine(cmd *cobra.Command) (*sower.Engine, error) {
	v, err := loadConfig()
	if err != nil {
		return nil, err
	}

	path, _ := cmd.Flags().GetString("schema")
	if path == "" {
		path = v.GetString(cfgKeySchema)
	}
	if path == "" {
		return nil, fmt.Errorf("no schema given: pass --schema or set %q in %s.%s", cfgKeySchema, configFileName, configFileType)
	}

	index, err := yamlschema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	levelName, _ := cmd.Flags().GetString("log-level")
	if levelName == "" {
		levelName = v.GetString(cfgKeyLogLevel)
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	return sower.New(index, sower.WithLogger(logging.New(level))), nil
}

// parseRequests turns arguments of the form entity[:trait,trait] into
// fixture requests.
func parseRequests(args []string) []sower.Request {
	reqs := make([]sower.Request, 0, len(args))
	for _, arg := range args {
		name, spec, _ := strings.Cut(arg, ":")
		req := sower.Request{Entity: domain.EntityName(name)}
		if spec != "" {
			for _, t := range strings.Split(spec, ",") {
				if t = strings.TrimSpace(t); t != "" {
					req.Traits = append(req.Traits, domain.TraitName(t))
				}
			}
		}
		reqs = append(reqs, req)
	}
	return reqs
}
