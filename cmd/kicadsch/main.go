package main

import "github.com/kenchangh/kicad-schematic/cmd/kicadsch/cmd"

func main() {
	cmd.Execute()
}
