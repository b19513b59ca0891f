package main

import (
	"flag"
	"log"

	"github.com/simp-lee/dinesync/internal/config"
	"github.com/simp-lee/dinesync/internal/devserver"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	srv, err := devserver.New(cfg)
	if err != nil {
		log.Fatal("failed to create server: ", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
