package main

import (
	"flag"
	"fmt"
	"os"

	"snmptrapd-core/internal/app"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to configuration file")
	flag.Parse()

	if configFile == "" {
		if envConfigFile := os.Getenv("SNMPTRAPD_CONFIG_FILE"); envConfigFile != "" {
			configFile = envConfigFile
		} else {
			configFile = "/etc/snmptrapd-core/config.yaml"
		}
	}

	application, err := app.New(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application: %v\n", err)
		os.Exit(1)
	}

	application.Run()
}
