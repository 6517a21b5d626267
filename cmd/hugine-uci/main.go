package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/ABDO10DZ/Hugine/internal/engine"
	"github.com/ABDO10DZ/Hugine/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", 256, "transposition table size in MB")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	eng := engine.NewEngine(*hashMB)
	uci.New(eng, os.Stdout).Run(os.Stdin)
}
