package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootConfiguration struct {
	// envFile is an optional dotenv file loaded before any subcommand runs,
	// following the teacher's compose environment loading convention
	// (cmd/mutagen/compose/environment.go): values already present in the
	// process environment always win over the file.
	envFile string
}

var rootCommand = &cobra.Command{
	Use:               "pathsync",
	Short:             "pathsync synchronizes the contents of two folders",
	PersistentPreRunE: loadEnvFile,
	Run: func(command *cobra.Command, arguments []string) {
		command.Help()
	},
}

func loadEnvFile(command *cobra.Command, arguments []string) error {
	if rootConfiguration.envFile == "" {
		return nil
	}
	fileEnvironment, err := godotenv.Read(rootConfiguration.envFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for key, value := range fileEnvironment {
		if _, already := os.LookupEnv(key); !already {
			os.Setenv(key, value)
		}
	}
	return nil
}

func init() {
	cobra.EnableCommandSorting = false

	flags := rootCommand.PersistentFlags()
	flags.StringVar(&rootConfiguration.envFile, "env-file", "", "Load environment variable defaults from a dotenv file")

	rootCommand.AddCommand(runCommand)
}
