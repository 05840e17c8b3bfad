package main

import (
	flag "github.com/spf13/pflag"

	"github.com/lachlan2k/school-portal/internal/config"
	"github.com/lachlan2k/school-portal/internal/webserver"
)

func main() {
	confPath := flag.StringP("config", "c", "config.toml", "Path to config file")
	flag.Parse()

	server := webserver.New()
	logger := server.Logger()

	conf, err := config.LoadFromTomlFileAndValidate(*confPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	server.Run(conf)
}
