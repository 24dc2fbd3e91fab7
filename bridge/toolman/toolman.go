package main

import (
	"log"
	"os"

	"github.com/5dlabs/toolman-sub001/bridge"
)

func main() {
	if err := bridge.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
