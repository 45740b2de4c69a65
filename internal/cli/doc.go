// Package cli provides command-line interface setup and configuration
// for dsxlate. It creates the cobra command tree, binds flags to viper
// keys and loads the config file and .env environment.
package cli
