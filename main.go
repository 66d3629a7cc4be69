package main

import (
	"log"

	"ocpinode/server"
)

func main() {

	node, err := server.NewPeerNode()
	if err != nil {
		log.Println("peer node initialization failed", err)
		return
	}
	if err = node.Start(); err != nil {
		log.Println("peer node stopped", err)
	}

}
