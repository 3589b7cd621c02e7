package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mlutsenko/askpage/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "askpage",
	Short: "askpage: ask a question about any web page",
	Long: `askpage fetches a web page through a content-extraction proxy,
segments it into bounded chunks, embeds the chunks for later similarity
search, and answers your question about the page with a generative model.

Commands:
  ask  Run the fetch-segment-embed-answer pipeline for one URL`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Credentials commonly live in a .env file during development.
	// Missing file is fine; viper reads the environment next.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("no .env file loaded", "error", err)
	}

	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/askpage")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// ASKPAGE_READER_API_KEY -> reader.api_key
	viper.SetEnvPrefix("ASKPAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("reader.endpoint", "ASKPAGE_READER_ENDPOINT")
	viper.BindEnv("reader.api_key", "ASKPAGE_READER_API_KEY")
	viper.BindEnv("segmenter.endpoint", "ASKPAGE_SEGMENTER_ENDPOINT")
	viper.BindEnv("segmenter.api_key", "ASKPAGE_SEGMENTER_API_KEY")
	viper.BindEnv("embedder.endpoint", "ASKPAGE_EMBEDDER_ENDPOINT")
	viper.BindEnv("embedder.api_key", "ASKPAGE_EMBEDDER_API_KEY")
	viper.BindEnv("embedder.model", "ASKPAGE_EMBEDDER_MODEL")
	viper.BindEnv("generator.base_url", "ASKPAGE_GENERATOR_BASE_URL")
	viper.BindEnv("generator.api_key", "ASKPAGE_GENERATOR_API_KEY")
	viper.BindEnv("generator.model", "ASKPAGE_GENERATOR_MODEL")
	viper.BindEnv("mongo.uri", "ASKPAGE_MONGO_URI")
	viper.BindEnv("mongo.database", "ASKPAGE_MONGO_DATABASE")
	viper.BindEnv("mongo.collection", "ASKPAGE_MONGO_COLLECTION")
	viper.BindEnv("pipeline.stage_timeout", "ASKPAGE_PIPELINE_STAGE_TIMEOUT")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}
}
