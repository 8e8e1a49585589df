package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"tanksim/sim"
)

func main() {
	cfg, err := sim.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		sim.Usage(os.Stderr, os.Args[0])
		os.Exit(1)
	}
	if err := cfg.ValidatePaths(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		sim.Usage(os.Stderr, os.Args[0])
		os.Exit(1)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	sched := sim.NewScheduler(cfg)
	code := sched.Run()
	log.WithField("games", sched.GamesPlayed()).Info("simulation finished")
	os.Exit(code)
}
