// Package main is the entry point for the docinsight server and CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/docinsight/internal/common"
)

// version is set at build time via ldflags.
var version = "dev"

// v holds configuration layered as flags > env > config file > defaults.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "docinsight",
	Short: "Extract text from PDFs and images and enrich it with Gemini",
	Long: `docinsight extracts text from uploaded PDF and image documents and, when a
Gemini API key is configured, adds a structured analysis: summary, sentiment,
hashtags, improvement points and an engagement score.

serve exposes POST /api/analyze over HTTP. analyze and watch run the same
pipeline over local files and write JSON, YAML or XLSX reports.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./docinsight.yaml or ~/.config/docinsight/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.Bool("gops", false, "start the gops diagnostics agent (serve, watch)")
	_ = v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = v.BindPFlag("server.gops", pf.Lookup("gops"))
}

func initConfig() {
	common.SetDefaults(v)
	if err := common.BindEnv(v); err != nil {
		fmt.Fprintln(os.Stderr, "bind env:", err)
		os.Exit(1)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("docinsight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "docinsight"))
		}
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "read config:", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
