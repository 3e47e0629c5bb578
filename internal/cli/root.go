package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miniminio/miniminio"
)

// EnvPrefix prefixes the environment variables that mirror flags, e.g.
// MINIMINIO_SHARDS=32 or MINIMINIO_METRICS_ADDR=:9090
const EnvPrefix = "miniminio"

// wrap is the number of characters help text is wrapped at
const wrap = 50

// NewRootCmd builds the command tree. Each tree has its own viper
// instance so flag and environment lookups do not leak between trees.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "miniminio",
		Short: "in-memory object and key/value server",
		Long: fmt.Sprintf(`miniminio (v%s)

An in-memory object and key/value server speaking a binary, length-prefixed
message protocol. Data is held in sharded stores with one lock per shard.

Every flag can also be set through an environment variable named
MINIMINIO_<FLAG> (e.g. MINIMINIO_LOG_LEVEL=debug). Variables are also read
from .env and .env.local in the working directory.`, miniminio.Version),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd)
		},
	}

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newClientCmds(v)...)
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the command tree against os.Args. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig loads env files and binds the flags of cmd to v
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv() // read in environment variables that match

	return v.BindPFlags(cmd.Flags())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of miniminio",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := miniminio.VersionInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "miniminio v%s\n", info["version"])
			if commit, ok := info["commit"]; ok {
				fmt.Fprintf(out, "commit %s\n", commit)
			}
			if built, ok := info["buildTime"]; ok {
				fmt.Fprintf(out, "built %s\n", built)
			}
		},
	}
}

// wrapString wraps text at wrap characters
func wrapString(text string) string {
	var lines []string
	var line strings.Builder

	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}
