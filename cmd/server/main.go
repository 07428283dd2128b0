package main

import (
	"log"

	approuters "github.com/krrishamadhavtech-bit/LiveChatting/internal/app_routers"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/configuration"
)

func main() {
	container, err := configuration.BuildContainer()
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	approuters.StartServer(container)
}
