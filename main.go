package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/n-ulricksen/gameboy-emulator/gb"

	"github.com/faiface/pixel/pixelgl"
)

// Command line flags
var (
	flagDebug   bool
	flagLogging bool
	flagBootRom string
)

func main() {
	parseFlags()

	romPath := flag.Arg(0)
	if romPath == "" {
		log.Fatal("usage: gameboy-emulator [flags] <rom file>")
	}

	fmt.Println("Starting Game Boy...")
	gameboy := gb.NewBus(flagDebug, flagLogging)

	cart, err := gb.NewCartridge(romPath)
	if err != nil {
		log.Fatalf("Unable to load cartridge...\n%v\n", err)
	}
	fmt.Println("Loaded cartridge:", cart.Title)

	gameboy.InsertCartridge(cart)

	if flagBootRom != "" {
		if err := gameboy.LoadBootRom(flagBootRom); err != nil {
			log.Fatalf("Unable to load boot ROM...\n%v\n", err)
		}
	}

	fmt.Println("Resetting Game Boy...")
	gameboy.Reset()

	pixelgl.Run(gameboy.Run)
}

func parseFlags() {
	flag.BoolVar(&flagDebug, "d", false, "enable debug panel")
	flag.BoolVar(&flagLogging, "l", false, "enable CPU trace logging")
	flag.StringVar(&flagBootRom, "boot", "", "path to a 256-byte bootstrap ROM")

	flag.Parse()
}
