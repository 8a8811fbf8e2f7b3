// Package cli provides command-line interface setup and configuration
// for the linkmemory application. It handles flag parsing, command
// creation, logging setup and configuration management using cobra,
// viper and godotenv.
package cli
