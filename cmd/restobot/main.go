package main

import (
	"log"

	"github.com/m3rciful/restobot/bot/app"
	"github.com/m3rciful/restobot/bot/config"
	"github.com/m3rciful/restobot/core/cmd"
)

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "RESTOBOT_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return app.New(cfg.(*config.Config))
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
